package models

import (
	"time"

	"gorm.io/gorm"
)

type WarrantyStatus string

const (
	StatusPending      WarrantyStatus = "pending"
	StatusApproved     WarrantyStatus = "approved"
	StatusRejected     WarrantyStatus = "rejected"
	StatusManualReview WarrantyStatus = "manual_review"
)

func (s WarrantyStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusManualReview:
		return true
	}
	return false
}

// EnsureEnum creates the Postgres enum backing Warranty.Status.
func EnsureEnum(db *gorm.DB) error {
	return db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'warranty_status') THEN
				CREATE TYPE warranty_status AS ENUM (
					'pending',
					'approved',
					'rejected',
					'manual_review'
				);
			END IF;
		END
		$$;
	`).Error
}

type Warranty struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ClientName       string         `gorm:"size:255;not null" json:"clientName"`
	ProductInfo      string         `gorm:"size:500;not null" json:"productInfo"`
	InstallationDate time.Time      `gorm:"not null" json:"installationDate"`
	InvoiceFilename  string         `gorm:"size:255;not null" json:"invoiceFilename"`
	InvoiceURL       string         `gorm:"size:500" json:"invoiceUrl"`
	InvoiceDate      *time.Time     `json:"invoiceDate,omitempty"`
	Status           WarrantyStatus `gorm:"type:warranty_status;default:'pending';index" json:"status"`
	UserID           uint           `gorm:"index;not null" json:"userId"`
	User             *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// WarrantyView is the listing shape: the warranty plus its owner.
type WarrantyView struct {
	Warranty
	Owner *Owner `json:"user,omitempty"`
}

func NewWarrantyView(w Warranty) WarrantyView {
	v := WarrantyView{Warranty: w}
	if w.User != nil {
		v.Owner = &Owner{ID: w.User.ID, Username: w.User.Username, Email: w.User.Email}
	}
	return v
}
