package auth

import (
	"errors"
	"strings"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/response"
	"github.com/Kyz7/warranty/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser   = "user"
	localUserID = "user_id"
	localClaims = "claims"
)

// JWTProtected verifies the bearer access token and reloads its user, so
// deleted accounts and changed roles take effect before the token expires.
func JWTProtected(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid token format")
		}

		claims, err := svc.Tokens().ParseAccess(tokenParts[1])
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid or expired token")
		}

		userID, err := claims.UserID()
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		u, err := svc.Store().FindByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return response.Unauthorized(c, "User not found")
			}
			return response.InternalError(c, "Failed to load user")
		}

		c.Locals(localUserID, u.ID)
		c.Locals(localUser, u)
		c.Locals(localClaims, claims)
		return c.Next()
	}
}

// RoleProtected must run after JWTProtected.
func RoleProtected(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil {
			return response.Unauthorized(c, "User not authenticated")
		}

		if u.HasRole(allowedRoles...) {
			return c.Next()
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// CurrentUser returns the user loaded by JWTProtected, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}
