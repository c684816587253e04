package validation

import (
	"time"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
)

type SignUp struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignUp) Validate() Errors {
	r.Username = Sanitize(r.Username)
	var errs Errors
	Username(&errs, "username", r.Username)
	Email(&errs, "email", r.Email)
	Password(&errs, "password", r.Password)
	return errs
}

type SignIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignIn) Validate() Errors {
	var errs Errors
	Email(&errs, "email", r.Email)
	Required(&errs, "password", r.Password)
	return errs
}

type ForgotPassword struct {
	Email string `json:"email"`
}

func (r *ForgotPassword) Validate() Errors {
	var errs Errors
	Email(&errs, "email", r.Email)
	return errs
}

type ResetPassword struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r *ResetPassword) Validate() Errors {
	var errs Errors
	Required(&errs, "token", r.Token)
	Password(&errs, "newPassword", r.NewPassword)
	return errs
}

type BioUpdate struct {
	WelcomeMessage *string `json:"welcomeMessage"`
	Avatar         *string `json:"avatar"`
}

// UserUpdate holds only the fields the caller sent.
type UserUpdate struct {
	Username *string    `json:"username"`
	Email    *string    `json:"email"`
	Password *string    `json:"password"`
	Bio      *BioUpdate `json:"bio"`
}

func (r *UserUpdate) Empty() bool {
	return r.Username == nil && r.Email == nil && r.Password == nil &&
		(r.Bio == nil || (r.Bio.WelcomeMessage == nil && r.Bio.Avatar == nil))
}

func (r *UserUpdate) Validate() Errors {
	var errs Errors
	if r.Username != nil {
		*r.Username = Sanitize(*r.Username)
		Username(&errs, "username", *r.Username)
	}
	if r.Email != nil {
		Email(&errs, "email", *r.Email)
	}
	if r.Password != nil {
		Password(&errs, "password", *r.Password)
	}
	if r.Bio != nil {
		if r.Bio.WelcomeMessage != nil {
			*r.Bio.WelcomeMessage = Sanitize(*r.Bio.WelcomeMessage)
			if len(*r.Bio.WelcomeMessage) > 500 {
				errs.add("bio.welcomeMessage", "Welcome message must be at most 500 characters")
			}
		}
		if r.Bio.Avatar != nil && len(*r.Bio.Avatar) > 500 {
			errs.add("bio.avatar", "Avatar URL must be at most 500 characters")
		}
	}
	return errs
}

// WarrantyCreate carries the text fields of the multipart submission.
type WarrantyCreate struct {
	ClientName       string
	ProductInfo      string
	InstallationDate string

	installedAt time.Time
}

func (r *WarrantyCreate) Validate() Errors {
	r.ClientName = Sanitize(r.ClientName)
	r.ProductInfo = Sanitize(r.ProductInfo)

	var errs Errors
	Required(&errs, "clientName", r.ClientName)
	Required(&errs, "productInfo", r.ProductInfo)
	r.installedAt = Date(&errs, "installationDate", r.InstallationDate)
	return errs
}

// InstalledAt is valid only after Validate returned no errors.
func (r *WarrantyCreate) InstalledAt() time.Time {
	return r.installedAt
}

type WarrantyUpdate struct {
	ClientName       *string `json:"clientName"`
	ProductInfo      *string `json:"productInfo"`
	InstallationDate *string `json:"installationDate"`
	Status           *string `json:"status"`
}

func (r *WarrantyUpdate) Empty() bool {
	return r.ClientName == nil && r.ProductInfo == nil && r.InstallationDate == nil && r.Status == nil
}

func (r *WarrantyUpdate) Validate() Errors {
	var errs Errors
	if r.ClientName != nil {
		*r.ClientName = Sanitize(*r.ClientName)
		Required(&errs, "clientName", *r.ClientName)
	}
	if r.ProductInfo != nil {
		*r.ProductInfo = Sanitize(*r.ProductInfo)
		Required(&errs, "productInfo", *r.ProductInfo)
	}
	if r.InstallationDate != nil {
		Date(&errs, "installationDate", *r.InstallationDate)
	}
	if r.Status != nil && !models.WarrantyStatus(*r.Status).Valid() {
		errs.add("status", "status must be one of pending, approved, rejected, manual_review")
	}
	return errs
}

// Changes returns the column updates for a validated request.
func (r *WarrantyUpdate) Changes() map[string]interface{} {
	changes := map[string]interface{}{}
	if r.ClientName != nil {
		changes["client_name"] = *r.ClientName
	}
	if r.ProductInfo != nil {
		changes["product_info"] = *r.ProductInfo
	}
	if r.InstallationDate != nil {
		if t, err := ocr.ParseDate(*r.InstallationDate); err == nil {
			changes["installation_date"] = t
		}
	}
	if r.Status != nil {
		changes["status"] = models.WarrantyStatus(*r.Status)
	}
	return changes
}
