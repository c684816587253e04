package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/events"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/server"
	"github.com/Kyz7/warranty/internal/storage"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/utils"
	"github.com/Kyz7/warranty/internal/warranty"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Prefix = "/api"

// FakeOCR returns a fixed invoice date (or error) and counts calls.
type FakeOCR struct {
	mu    sync.Mutex
	Date  *time.Time
	Err   error
	calls int
}

func (f *FakeOCR) ParseInvoiceDate(_ context.Context, _ ocr.Document) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Date, f.Err
}

// Returns sets the next result; a zero date string means "no date found".
func (f *FakeOCR) Returns(date string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
	f.Date = nil
	if date != "" {
		d, _ := time.Parse("2006-01-02", date)
		f.Date = &d
	}
}

func (f *FakeOCR) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestApp is the full fiber app plus handles on its collaborators.
type TestApp struct {
	App    *fiber.App
	DB     *gorm.DB
	Auth   *auth.Service
	Tokens *utils.TokenIssuer
	OCR    *FakeOCR
	Files  *storage.Local
	Events *events.Recorder
}

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db), "Failed to migrate test database")
	return db
}

func SetupTestApp(t *testing.T) *TestApp {
	utils.PasswordCost = bcrypt.MinCost

	db := TestDB(t)
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err, "Failed to initialize storage")

	tokens := utils.NewTestTokenIssuer()
	authSvc := auth.NewService(auth.NewGormUserStore(db), tokens, 15*time.Minute)
	t.Cleanup(authSvc.Close)

	fake := &FakeOCR{}
	recorder := &events.Recorder{}

	app := server.New(server.Deps{
		APIPrefix:      Prefix,
		AllowedOrigins: "http://localhost:5173",
		CookieSecure:   true,
		Auth:           authSvc,
		Users:          user.NewService(db),
		Warranties:     warranty.NewService(db, warranty.NewDecider(fake), files, recorder),
		Files:          files,
	})

	return &TestApp{
		App:    app,
		DB:     db,
		Auth:   authSvc,
		Tokens: tokens,
		OCR:    fake,
		Files:  files,
		Events: recorder,
	}
}

func CreateTestUser(t *testing.T, db *gorm.DB, username, email, password string, roles ...string) *models.User {
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	hashedPassword, err := utils.HashPassword(password)
	require.NoError(t, err)

	u := &models.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
		Roles:    roles,
		Bio:      models.DefaultBio(),
	}
	require.NoError(t, db.Create(u).Error, "Failed to create test user")
	return u
}

func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	return CreateTestUser(t, db, "admin", "admin@test.com", "Adm1n@Pass", models.RoleUser, models.RoleAdmin)
}

func GetAuthToken(t *testing.T, tokens *utils.TokenIssuer, u *models.User) string {
	token, err := tokens.GenerateAccess(utils.TokenPayload{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles,
	})
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

// Response is a recorded response with its headers and cookies.
type Response struct {
	*httptest.ResponseRecorder
	Cookies []*http.Cookie
}

func do(app *fiber.App, req *http.Request, token string, cookies []*http.Cookie) (*Response, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := &Response{ResponseRecorder: httptest.NewRecorder()}
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}
	defer resp.Body.Close()

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}
	rec.Cookies = resp.Cookies()
	_, _ = io.Copy(rec.Body, resp.Body)

	return rec, nil
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string, cookies ...*http.Cookie) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return do(app, req, token, cookies)
}

// File is one multipart file part.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

func MakeMultipartRequestWithFile(app *fiber.App, method, url string, fields map[string]string, files []File, token string) (*Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		_ = writer.WriteField(key, val)
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Name+`"`)
		h.Set("Content-Type", f.ContentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, err
		}
		_, _ = part.Write(f.Data)
	}

	contentType := writer.FormDataContentType()
	_ = writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)
	return do(app, req, token, nil)
}

func ParseResponse(t *testing.T, resp *Response, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.Unmarshal(resp.Body.Bytes(), v)
	if err != nil {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// DataMap returns the data object of a successful response.
func DataMap(t *testing.T, resp *Response) map[string]interface{} {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	m, ok := result.Data.(map[string]interface{})
	require.True(t, ok, "Expected object data, got %s", resp.Body.String())
	return m
}

func AssertSuccess(t *testing.T, resp *Response) StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response: %s", resp.Body.String())
	assert.Empty(t, result.Error, "Expected no error")
	return result
}

func AssertError(t *testing.T, resp *Response, expectedCode string) StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object: %s", resp.Body.String()) {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
	return result
}
