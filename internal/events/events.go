// Package events publishes warranty domain events to RabbitMQ. Publishing is
// best effort: failures are logged and returned, and callers ignore them.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Kyz7/warranty/internal/models"
)

const QueueWarrantyDecided = "warranty.decided"

// WarrantyDecided is emitted once per submission, after the status is stored.
type WarrantyDecided struct {
	WarrantyID       uint                  `json:"warrantyId"`
	UserID           uint                  `json:"userId"`
	Status           models.WarrantyStatus `json:"status"`
	InstallationDate time.Time             `json:"installationDate"`
	InvoiceDate      *time.Time            `json:"invoiceDate,omitempty"`
	DecidedAt        time.Time             `json:"decidedAt"`
}

func NewWarrantyDecided(w *models.Warranty, now time.Time) WarrantyDecided {
	return WarrantyDecided{
		WarrantyID:       w.ID,
		UserID:           w.UserID,
		Status:           w.Status,
		InstallationDate: w.InstallationDate,
		InvoiceDate:      w.InvoiceDate,
		DecidedAt:        now.UTC(),
	}
}

type Publisher interface {
	PublishWarrantyDecided(ctx context.Context, event WarrantyDecided) error
}

// Nop drops every event. Used when RABBITMQ_URL is unset.
type Nop struct{}

func (Nop) PublishWarrantyDecided(context.Context, WarrantyDecided) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []WarrantyDecided
}

func (r *Recorder) PublishWarrantyDecided(_ context.Context, event WarrantyDecided) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []WarrantyDecided {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WarrantyDecided(nil), r.events...)
}
