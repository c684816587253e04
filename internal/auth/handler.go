package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/response"
	"github.com/Kyz7/warranty/internal/validation"
	"github.com/gofiber/fiber/v2"
)

const RefreshCookie = "refreshToken"

type Handler struct {
	svc          *Service
	cookieSecure bool
}

func NewHandler(svc *Service, cookieSecure bool) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure}
}

func (h *Handler) SignUp(c *fiber.Ctx) error {
	var body validation.SignUp
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := body.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	u, err := h.svc.SignUp(c.UserContext(), body.Username, body.Email, body.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Created(c, fiber.Map{"user": u},
		fmt.Sprintf("User %s registered successfully!", u.Username))
}

func (h *Handler) SignIn(c *fiber.Ctx) error {
	body, ok, err := parseSignIn(c)
	if !ok {
		return err
	}

	session, err := h.svc.SignIn(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Success(c, fiber.Map{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	}, fmt.Sprintf("User %s logged in successfully", session.User.Username))
}

// SignInAdmin also hands the refresh token back as an httpOnly cookie.
func (h *Handler) SignInAdmin(c *fiber.Ctx) error {
	body, ok, err := parseSignIn(c)
	if !ok {
		return err
	}

	session, err := h.svc.SignInAdmin(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return h.fail(c, err)
	}

	h.setRefreshCookie(c, session.RefreshToken, h.svc.Tokens().RefreshTTL())

	return response.Success(c, fiber.Map{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	}, fmt.Sprintf("User %s logged in successfully", session.User.Username))
}

func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	token, err := refreshFromBody(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	return h.refresh(c, token)
}

func (h *Handler) RefreshTokenAdmin(c *fiber.Ctx) error {
	return h.refresh(c, c.Cookies(RefreshCookie))
}

func (h *Handler) refresh(c *fiber.Ctx, token string) error {
	access, err := h.svc.Refresh(c.UserContext(), token)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.Map{"accessToken": access}, "Access token refreshed successfully")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	token, err := refreshFromBody(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	return h.logout(c, token)
}

func (h *Handler) LogoutAdmin(c *fiber.Ctx) error {
	token := c.Cookies(RefreshCookie)
	h.setRefreshCookie(c, "", 0)
	return h.logout(c, token)
}

func (h *Handler) logout(c *fiber.Ctx, token string) error {
	ok, err := h.svc.Logout(c.UserContext(), token)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return response.Success(c, false, "No active session")
	}
	return response.Success(c, true, "Logged out successfully")
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var body validation.ForgotPassword
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := body.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	token, err := h.svc.ForgotPassword(c.UserContext(), body.Email)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Success(c, fiber.Map{
		"message": "Reset your password",
		"token":   token,
	}, "Reset your password")
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var body validation.ResetPassword
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := body.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	if err := h.svc.ResetPassword(c.UserContext(), body.Token, body.NewPassword); err != nil {
		return h.fail(c, err)
	}

	return response.Success(c, nil, "Password reset successfully")
}

// refreshFromBody treats an empty body as a missing token.
func refreshFromBody(c *fiber.Ctx) (string, error) {
	if len(c.Body()) == 0 {
		return "", nil
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&body); err != nil {
		return "", err
	}
	return body.RefreshToken, nil
}

func parseSignIn(c *fiber.Ctx) (validation.SignIn, bool, error) {
	var body validation.SignIn
	if err := c.BodyParser(&body); err != nil {
		return body, false, response.BadRequest(c, "Invalid request body", err.Error())
	}
	if errs := body.Validate(); errs != nil {
		return body, false, response.ValidationError(c, errs)
	}
	return body, true, nil
}

// setRefreshCookie with an empty value expires the cookie.
func (h *Handler) setRefreshCookie(c *fiber.Ctx, value string, ttl time.Duration) {
	cookie := &fiber.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteNoneMode,
	}
	if value == "" {
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}
	c.Cookie(cookie)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var dup *database.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		return response.DuplicateField(c, dup)
	case errors.Is(err, ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, ErrNotAdmin):
		return response.Forbidden(c, "Admin access required")
	case errors.Is(err, ErrRefreshMissing):
		return response.Unauthorized(c, "No refresh token")
	case errors.Is(err, ErrRefreshExpired):
		return response.Unauthorized(c, "Refresh token expired")
	case errors.Is(err, ErrRefreshForbidden):
		return response.Forbidden(c, "Invalid refresh token")
	case errors.Is(err, ErrUserNotFound):
		return response.NotFound(c, "User not found")
	case errors.Is(err, ErrInvalidResetToken):
		return response.BadRequest(c, "Invalid or expired reset token.", nil)
	case errors.Is(err, ErrResetTokenExpired):
		return response.BadRequest(c, "Reset token has expired.", nil)
	}

	log.Printf("❌ auth: %v", err)
	return response.InternalError(c, "Something went wrong")
}
