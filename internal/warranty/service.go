package warranty

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Kyz7/warranty/internal/events"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/pagination"
	"github.com/Kyz7/warranty/internal/storage"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("warranty not found")

var ListOptions = pagination.Options{
	SortFields: map[string]string{
		"clientName":       "client_name",
		"productInfo":      "product_info",
		"status":           "status",
		"createdAt":        "created_at",
		"updatedAt":        "updated_at",
		"installationDate": "installation_date",
	},
	DefaultSort:   "createdAt",
	SearchColumns: []string{"client_name", "product_info"},
}

// Submission is a validated warranty request with its invoice attached.
type Submission struct {
	ClientName       string
	ProductInfo      string
	InstallationDate time.Time
	Invoice          ocr.Document
}

type Service struct {
	db        *gorm.DB
	decider   *Decider
	files     storage.Storage
	publisher events.Publisher
	now       func() time.Time
}

func NewService(db *gorm.DB, decider *Decider, files storage.Storage, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{db: db, decider: decider, files: files, publisher: publisher, now: time.Now}
}

// Create stores the invoice, runs the decision pipeline and saves the result.
// The status is final for the owner; only an admin update changes it later.
func (s *Service) Create(ctx context.Context, ownerID uint, sub Submission) (*models.Warranty, error) {
	url, err := s.files.Save(ctx, sub.Invoice.Filename, sub.Invoice.ContentType, sub.Invoice.Data)
	if err != nil {
		return nil, fmt.Errorf("store invoice: %w", err)
	}

	decision := s.decider.Decide(ctx, sub.Invoice, sub.InstallationDate)

	w := &models.Warranty{
		ClientName:       sub.ClientName,
		ProductInfo:      sub.ProductInfo,
		InstallationDate: sub.InstallationDate,
		InvoiceFilename:  sub.Invoice.Filename,
		InvoiceURL:       url,
		InvoiceDate:      decision.InvoiceDate,
		Status:           decision.Status,
		UserID:           ownerID,
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		if derr := s.files.Delete(context.Background(), url); derr != nil {
			log.Printf("⚠️  Failed to remove orphaned invoice %s: %v", url, derr)
		}
		return nil, fmt.Errorf("save warranty: %w", err)
	}

	log.Printf("📄 Warranty %d for user %d: %s", w.ID, ownerID, w.Status)
	go s.publishDecided(events.NewWarrantyDecided(w, s.now()))

	return w, nil
}

func (s *Service) publishDecided(event events.WarrantyDecided) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.publisher.PublishWarrantyDecided(ctx, event); err != nil {
		log.Printf("⚠️  Failed to publish %s for warranty %d: %v", events.QueueWarrantyDecided, event.WarrantyID, err)
	}
}

// FindMine lists the owner's warranties.
func (s *Service) FindMine(ctx context.Context, ownerID uint, p pagination.Params) ([]models.Warranty, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Warranty{}).Where("user_id = ?", ownerID)
	return s.list(q, p, false)
}

// FindAll lists every warranty with its owner attached.
func (s *Service) FindAll(ctx context.Context, p pagination.Params) ([]models.Warranty, int64, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Warranty{}), p, true)
}

func (s *Service) list(q *gorm.DB, p pagination.Params, withOwner bool) ([]models.Warranty, int64, error) {
	q = pagination.Filter(q, p, ListOptions)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := pagination.Page(q, p, ListOptions)
	if withOwner {
		page = page.Preload("User")
	}

	warranties := []models.Warranty{}
	if err := page.Find(&warranties).Error; err != nil {
		return nil, 0, err
	}
	return warranties, total, nil
}

func (s *Service) FindOne(ctx context.Context, id uint) (*models.Warranty, error) {
	var w models.Warranty
	if err := s.db.WithContext(ctx).Preload("User").First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Update applies column changes already validated by the caller.
func (s *Service) Update(ctx context.Context, id uint, changes map[string]interface{}) (*models.Warranty, error) {
	w, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Warranty{ID: w.ID}).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.FindOne(ctx, id)
}

// Remove deletes the record and then, best effort, its stored invoice.
func (s *Service) Remove(ctx context.Context, id uint) (*models.Warranty, error) {
	w, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Warranty{}, id).Error; err != nil {
		return nil, err
	}

	if w.InvoiceURL != "" {
		if err := s.files.Delete(ctx, w.InvoiceURL); err != nil {
			log.Printf("⚠️  Failed to delete invoice %s: %v", w.InvoiceURL, err)
		}
	}
	return w, nil
}
