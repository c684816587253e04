package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/events"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/server"
	"github.com/Kyz7/warranty/internal/storage"
	"github.com/Kyz7/warranty/internal/testutils"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/utils"
	"github.com/Kyz7/warranty/internal/warranty"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, signInLimit int) *fiber.App {
	db := testutils.TestDB(t)
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	authSvc := auth.NewService(auth.NewGormUserStore(db), utils.NewTestTokenIssuer(), 15*time.Minute)
	t.Cleanup(authSvc.Close)

	noOCR := ocr.ClientFunc(func(_ context.Context, _ ocr.Document) (*time.Time, error) {
		return nil, ocr.ErrNotConfigured
	})

	return server.New(server.Deps{
		APIPrefix:       "/api",
		AllowedOrigins:  "http://localhost:5173",
		Auth:            authSvc,
		Users:           user.NewService(db),
		Warranties:      warranty.NewService(db, warranty.NewDecider(noOCR), files, events.Nop{}),
		Files:           files,
		SignInRateLimit: signInLimit,
	})
}

func TestHealth(t *testing.T) {
	app := newApp(t, 0)

	resp, err := testutils.MakeRequest(app, "GET", "/health", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestCORS(t *testing.T) {
	app := newApp(t, 0)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.True(t, strings.Contains(resp.Header.Get("Access-Control-Expose-Headers"), "Content-Range"))
}

func TestCORSPreflightAllowsDataProviderHeaders(t *testing.T) {
	app := newApp(t, 0)

	req := httptest.NewRequest("OPTIONS", "/api/users", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Range, Content-Range, X-Requested-With")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	allowed := resp.Header.Get("Access-Control-Allow-Headers")
	for _, h := range []string{"Content-Range", "Range", "X-Requested-With", "Authorization"} {
		assert.Contains(t, allowed, h)
	}
}

func TestAPIReference(t *testing.T) {
	app := newApp(t, 0)

	resp, err := testutils.MakeRequest(app, "GET", "/api/docs", nil, "")
	require.NoError(t, err)
	require.Equal(t, 200, resp.Code)

	var ref server.APIReference
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ref))
	assert.Equal(t, "Warranty API", ref.Name)
	assert.True(t, strings.HasSuffix(ref.BaseURL, "/api"))

	byRoute := map[string]server.APIEndpoint{}
	for _, e := range ref.Endpoints {
		byRoute[e.Method+" "+e.Path] = e
	}
	for _, route := range []string{
		"POST /auth/signup", "POST /auth/signin", "GET /auth/logout-admin",
		"GET /users", "PUT /users/{id}",
		"POST /warranties", "GET /warranties/mine", "DELETE /warranties/{id}",
	} {
		assert.Contains(t, byRoute, route)
	}

	assert.False(t, byRoute["POST /auth/signin"].Auth)
	assert.True(t, byRoute["GET /users"].Auth)
	assert.Equal(t, []string{"admin"}, byRoute["GET /users"].Roles)
	assert.Equal(t, []string{"user"}, byRoute["POST /warranties"].Roles)
	assert.Contains(t, byRoute["POST /warranties"].RequestBody, "invoice")
	assert.Contains(t, byRoute["GET /warranties"].Parameters, "sortBy")
}

func TestOpenAPIDocument(t *testing.T) {
	app := newApp(t, 0)

	resp, err := testutils.MakeRequest(app, "GET", "/api/swagger/docs", nil, "")
	require.NoError(t, err)
	require.Equal(t, 200, resp.Code)

	var doc struct {
		OpenAPI string                                       `json:"openapi"`
		Paths   map[string]map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc.OpenAPI)

	require.Contains(t, doc.Paths, "/warranties/{id}")
	item := doc.Paths["/warranties/{id}"]
	assert.Contains(t, item, "get")
	assert.Contains(t, item, "put")
	assert.Contains(t, item, "delete")
	assert.Contains(t, item["get"], "security")
	assert.NotContains(t, doc.Paths["/auth/signin"]["post"], "security")

	body := doc.Paths["/warranties"]["post"]["requestBody"].(map[string]interface{})
	assert.Contains(t, body["content"], "multipart/form-data")
}

func TestSignInRateLimit(t *testing.T) {
	app := newApp(t, 2)
	body := map[string]string{"email": "nobody@example.com", "password": "Str0ng@Pass"}

	for i := 0; i < 2; i++ {
		resp, err := testutils.MakeRequest(app, "POST", "/api/auth/signin", body, "")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	}

	resp, err := testutils.MakeRequest(app, "POST", "/api/auth/signin", body, "")
	require.NoError(t, err)
	assert.Equal(t, 429, resp.Code)
}

func TestRoutesLiveUnderPrefix(t *testing.T) {
	app := newApp(t, 0)

	resp, err := testutils.MakeRequest(app, "POST", "/auth/signin", map[string]string{}, "")
	assert.NoError(t, err)
	assert.Equal(t, 404, resp.Code)
}
