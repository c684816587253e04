package user

import (
	"errors"
	"fmt"
	"log"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/database"
	"github.com/Kyz7/warranty/internal/pagination"
	"github.com/Kyz7/warranty/internal/response"
	"github.com/Kyz7/warranty/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(c *fiber.Ctx) error {
	params, errs := pagination.Parse(c, ListOptions)
	if errs != nil {
		return response.BadRequest(c, "Invalid query parameters", errs)
	}

	users, total, err := h.svc.List(c.UserContext(), params)
	if err != nil {
		log.Printf("❌ list users: %v", err)
		return response.InternalError(c, "Failed to fetch users")
	}

	return response.Paginated(c, "users", users, len(users),
		response.CalculateMeta(params.Page, params.Limit, total), "Users retrieved successfully")
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, ok, err := h.targetID(c)
	if !ok {
		return err
	}

	u, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, id, err)
	}
	return response.Success(c, u, "User retrieved successfully")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	id, ok, err := h.targetID(c)
	if !ok {
		return err
	}

	var body validation.UserUpdate
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if body.Empty() {
		return response.BadRequest(c, "No fields provided for update", nil)
	}
	if errs := body.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	u, err := h.svc.Update(c.UserContext(), id, body)
	if err != nil {
		return h.fail(c, id, err)
	}
	return response.Success(c, u, "User updated successfully")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, ok, err := h.targetID(c)
	if !ok {
		return err
	}

	u, err := h.svc.Delete(c.UserContext(), id)
	if err != nil {
		return h.fail(c, id, err)
	}
	return response.Success(c, u, "User deleted successfully")
}

// targetID parses :id and enforces that non-admins only touch their own account.
func (h *Handler) targetID(c *fiber.Ctx) (uint, bool, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, false, response.BadRequest(c, "Invalid user ID", nil)
	}

	current := auth.CurrentUser(c)
	if current == nil {
		return 0, false, response.Unauthorized(c, "User not authenticated")
	}
	if !current.IsAdmin() && current.ID != uint(id) {
		return 0, false, response.Forbidden(c, "You can only access your own account")
	}
	return uint(id), true, nil
}

func (h *Handler) fail(c *fiber.Ctx, id uint, err error) error {
	var dup *database.DuplicateKeyError
	switch {
	case errors.Is(err, ErrNotFound):
		return response.NotFound(c, fmt.Sprintf("User with ID %d not found", id))
	case errors.As(err, &dup):
		return response.DuplicateField(c, dup)
	}

	log.Printf("❌ user %d: %v", id, err)
	return response.InternalError(c, "Something went wrong")
}
