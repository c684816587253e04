package validation_test

import (
	"testing"
	"time"

	"github.com/Kyz7/warranty/internal/validation"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestSignUp(t *testing.T) {
	tests := []struct {
		name    string
		req     validation.SignUp
		invalid []string
	}{
		{"valid", validation.SignUp{Username: "alice", Email: "alice@example.com", Password: "Str0ng@Pass"}, nil},
		{"short username", validation.SignUp{Username: "al", Email: "alice@example.com", Password: "Str0ng@Pass"}, []string{"username"}},
		{"long username", validation.SignUp{Username: "abcdefghijklmnopqrstu", Email: "alice@example.com", Password: "Str0ng@Pass"}, []string{"username"}},
		{"bad email", validation.SignUp{Username: "alice", Email: "alice", Password: "Str0ng@Pass"}, []string{"email"}},
		{"email without domain dot", validation.SignUp{Username: "alice", Email: "alice@localhost", Password: "Str0ng@Pass"}, []string{"email"}},
		{"short password", validation.SignUp{Username: "alice", Email: "alice@example.com", Password: "S0@a"}, []string{"password"}},
		{"no special", validation.SignUp{Username: "alice", Email: "alice@example.com", Password: "Str0ngPass"}, []string{"password"}},
		{"no digit", validation.SignUp{Username: "alice", Email: "alice@example.com", Password: "Strong@Pass"}, []string{"password"}},
		{"no upper", validation.SignUp{Username: "alice", Email: "alice@example.com", Password: "str0ng@pass"}, []string{"password"}},
		{"everything missing", validation.SignUp{}, []string{"username", "email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if tt.invalid == nil {
				assert.Nil(t, errs)
				return
			}
			assert.Len(t, errs, len(tt.invalid))
			for _, f := range tt.invalid {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestSignUpSanitizesUsername(t *testing.T) {
	req := validation.SignUp{Username: "<b>alice</b>", Email: "alice@example.com", Password: "Str0ng@Pass"}
	assert.Nil(t, req.Validate())
	assert.Equal(t, "alice", req.Username)
}

func TestSanitizeKeepsPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Smith & Sons", "Smith & Sons"},
		{"O'Brien", "O'Brien"},
		{`The "Pro" unit`, `The "Pro" unit`},
		{"a < b > c", "a < b > c"},
		{"  <b>Bold</b> & co ", "Bold & co"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.Sanitize(tt.in))
		})
	}
}

func TestLengthChecksRunOnSanitizedText(t *testing.T) {
	req := validation.SignUp{Username: "abcdefghijklmnop&q", Email: "amp@example.com", Password: "Str0ng@Pass"}
	assert.Nil(t, req.Validate())
	assert.Equal(t, "abcdefghijklmnop&q", req.Username)

	w := validation.WarrantyCreate{ClientName: "Smith & Sons", ProductInfo: `O'Brien "Pro" unit`, InstallationDate: "2025-04-01"}
	assert.Nil(t, w.Validate())
	assert.Equal(t, "Smith & Sons", w.ClientName)
	assert.Equal(t, `O'Brien "Pro" unit`, w.ProductInfo)
}

func TestResetPassword(t *testing.T) {
	req := validation.ResetPassword{Token: "abc", NewPassword: "weak"}
	errs := req.Validate()
	assert.Contains(t, errs, "newPassword")
	assert.NotContains(t, errs, "token")

	req = validation.ResetPassword{Token: "abc", NewPassword: "N3w@Password"}
	assert.Nil(t, req.Validate())
}

func TestWarrantyCreate(t *testing.T) {
	req := validation.WarrantyCreate{
		ClientName:       "<script>alert(1)</script>ACME",
		ProductInfo:      "Heat pump",
		InstallationDate: "2025-04-01",
	}
	assert.Nil(t, req.Validate())
	assert.Equal(t, "ACME", req.ClientName)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), req.InstalledAt())

	req = validation.WarrantyCreate{ClientName: " ", InstallationDate: "01/04/2025"}
	errs := req.Validate()
	assert.Contains(t, errs, "clientName")
	assert.Contains(t, errs, "productInfo")
	assert.Contains(t, errs, "installationDate")
}

func TestDateAcceptsRFC3339(t *testing.T) {
	req := validation.WarrantyCreate{ClientName: "a", ProductInfo: "b", InstallationDate: "2025-04-01T10:00:00+02:00"}
	assert.Nil(t, req.Validate())
	assert.Equal(t, time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC), req.InstalledAt())
}

func TestWarrantyUpdate(t *testing.T) {
	empty := validation.WarrantyUpdate{}
	assert.True(t, empty.Empty())

	req := validation.WarrantyUpdate{Status: strPtr("archived")}
	assert.Contains(t, req.Validate(), "status")

	req = validation.WarrantyUpdate{
		Status:           strPtr("approved"),
		InstallationDate: strPtr("2025-05-01"),
		ProductInfo:      strPtr("<i>Boiler</i>"),
	}
	assert.Nil(t, req.Validate())
	changes := req.Changes()
	assert.Equal(t, "Boiler", changes["product_info"])
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), changes["installation_date"])
	assert.NotContains(t, changes, "client_name")
}

func TestUserUpdate(t *testing.T) {
	assert.True(t, (&validation.UserUpdate{}).Empty())
	assert.True(t, (&validation.UserUpdate{Bio: &validation.BioUpdate{}}).Empty())

	req := validation.UserUpdate{Email: strPtr("nope"), Password: strPtr("Val1d@Pass")}
	errs := req.Validate()
	assert.Contains(t, errs, "email")
	assert.NotContains(t, errs, "password")
}
