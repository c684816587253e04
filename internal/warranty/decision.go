package warranty

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
)

// ApprovalWindowDays is the largest invoice/installation gap that is still approved.
const ApprovalWindowDays = 21

// Decision is the outcome of checking one invoice.
type Decision struct {
	Status      models.WarrantyStatus
	InvoiceDate *time.Time
}

// Decider turns an invoice and a claimed installation date into a status.
type Decider struct {
	ocr ocr.Client
}

func NewDecider(client ocr.Client) *Decider {
	return &Decider{ocr: client}
}

// Decide makes exactly one OCR call. OCR failures are logged and treated as
// "no date found", so the result is manual_review rather than an error.
func (d *Decider) Decide(ctx context.Context, invoice ocr.Document, installationDate time.Time) Decision {
	invoiceDate, err := d.ocr.ParseInvoiceDate(ctx, invoice)
	if err != nil {
		if errors.Is(err, ocr.ErrNotConfigured) {
			log.Printf("⚠️  OCR not configured, %s sent to manual review", invoice.Filename)
		} else {
			log.Printf("⚠️  OCR failed for %s: %v", invoice.Filename, err)
		}
		invoiceDate = nil
	}

	return Decision{
		Status:      StatusFor(invoiceDate, installationDate),
		InvoiceDate: invoiceDate,
	}
}

// StatusFor is the decision table.
func StatusFor(invoiceDate *time.Time, installationDate time.Time) models.WarrantyStatus {
	if invoiceDate == nil {
		return models.StatusManualReview
	}
	if DiffDays(*invoiceDate, installationDate) <= ApprovalWindowDays {
		return models.StatusApproved
	}
	return models.StatusRejected
}

// DiffDays is the absolute distance in whole days, truncating any remainder.
func DiffDays(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
