package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// MindeeClient calls the Mindee invoice prediction endpoint. The API key is sent
// as "Authorization: Token <key>" through an oauth2 static token transport.
type MindeeClient struct {
	url        string
	configured bool
	timeout    time.Duration
	httpClient *http.Client
}

func NewMindeeClient(apiKey, url string, timeout time.Duration) *MindeeClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Token"})

	return &MindeeClient{
		url:        url,
		configured: apiKey != "" && url != "",
		timeout:    timeout,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
	}
}

type mindeeResponse struct {
	Document struct {
		Inference struct {
			Prediction struct {
				Date struct {
					Value *string `json:"value"`
				} `json:"date"`
			} `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

func (m *MindeeClient) ParseInvoiceDate(ctx context.Context, doc Document) (*time.Time, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}

	body, contentType, err := buildDocumentForm(doc)
	if err != nil {
		return nil, err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, body)
	if err != nil {
		return nil, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ocr: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ocr: status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	return parseMindeeResponse(payload)
}

func parseMindeeResponse(payload []byte) (*time.Time, error) {
	var parsed mindeeResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("ocr: failed to parse invoice response: %w", err)
	}

	value := parsed.Document.Inference.Prediction.Date.Value
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}

	date, err := ParseDate(*value)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return &date, nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp, normalised to UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if d, err := time.Parse("2006-01-02", value); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, value); err == nil {
		return d.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func buildDocumentForm(doc Document) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename=%q`, doc.Filename))
	header.Set("Content-Type", doc.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("ocr: build form: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", fmt.Errorf("ocr: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("ocr: build form: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
