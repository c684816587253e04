package warranty_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/warranty"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedOCR(t time.Time) ocr.Client {
	return ocr.ClientFunc(func(context.Context, ocr.Document) (*time.Time, error) {
		return &t, nil
	})
}

func TestDecide(t *testing.T) {
	installation := date(2025, 4, 1)
	invoice := ocr.Document{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("x")}

	tests := []struct {
		name   string
		client ocr.Client
		want   models.WarrantyStatus
	}{
		{"invoice 14 days after installation", fixedOCR(date(2025, 4, 15)), models.StatusApproved},
		{"invoice 39 days after installation", fixedOCR(date(2025, 5, 10)), models.StatusRejected},
		{"invoice exactly 21 days after", fixedOCR(date(2025, 4, 22)), models.StatusApproved},
		{"invoice 22 days after", fixedOCR(date(2025, 4, 23)), models.StatusRejected},
		{"invoice 21 days before", fixedOCR(date(2025, 3, 11)), models.StatusApproved},
		{"invoice 30 days before", fixedOCR(date(2025, 3, 2)), models.StatusRejected},
		{"same day", fixedOCR(installation), models.StatusApproved},
		{
			"no date found",
			ocr.ClientFunc(func(context.Context, ocr.Document) (*time.Time, error) { return nil, nil }),
			models.StatusManualReview,
		},
		{
			"ocr failure",
			ocr.ClientFunc(func(context.Context, ocr.Document) (*time.Time, error) {
				return nil, errors.New("connection refused")
			}),
			models.StatusManualReview,
		},
		{
			"ocr not configured",
			ocr.ClientFunc(func(context.Context, ocr.Document) (*time.Time, error) { return nil, ocr.ErrNotConfigured }),
			models.StatusManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := warranty.NewDecider(tt.client).Decide(context.Background(), invoice, installation)
			assert.Equal(t, tt.want, decision.Status)
			if tt.want == models.StatusManualReview {
				assert.Nil(t, decision.InvoiceDate)
			} else {
				assert.NotNil(t, decision.InvoiceDate)
			}
		})
	}
}

func TestDecideCallsOCROnce(t *testing.T) {
	calls := 0
	client := ocr.ClientFunc(func(context.Context, ocr.Document) (*time.Time, error) {
		calls++
		return nil, errors.New("timeout")
	})

	warranty.NewDecider(client).Decide(context.Background(), ocr.Document{}, date(2025, 4, 1))
	assert.Equal(t, 1, calls)
}

func TestDiffDaysTruncates(t *testing.T) {
	base := date(2025, 4, 1)
	assert.Equal(t, 21, warranty.DiffDays(base.Add(21*24*time.Hour+23*time.Hour), base))
	assert.Equal(t, 21, warranty.DiffDays(base, base.Add(21*24*time.Hour+23*time.Hour)))
	assert.Equal(t, 0, warranty.DiffDays(base.Add(23*time.Hour), base))
	assert.Equal(t, models.StatusApproved, warranty.StatusFor(ptr(base.Add(21*24*time.Hour+23*time.Hour)), base))
}

func ptr(t time.Time) *time.Time { return &t }
