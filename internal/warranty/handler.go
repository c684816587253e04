package warranty

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/Kyz7/warranty/internal/auth"
	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/ocr"
	"github.com/Kyz7/warranty/internal/pagination"
	"github.com/Kyz7/warranty/internal/response"
	"github.com/Kyz7/warranty/internal/validation"
	"github.com/gofiber/fiber/v2"
)

const (
	InvoiceField   = "invoice"
	MaxInvoiceSize = 10 * 1024 * 1024
)

var allowedInvoiceTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(c *fiber.Ctx) error {
	fh, err := c.FormFile(InvoiceField)
	if err != nil {
		return response.BadRequest(c, "Invoice file is required", nil)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get(fiber.HeaderContentType), ";")[0]))
	if !allowedInvoiceTypes[contentType] {
		return response.BadRequest(c, "Only PDF, JPEG, and PNG files are allowed!", nil)
	}
	if fh.Size > MaxInvoiceSize {
		return response.BadRequest(c, "Invoice file must not exceed 10MB", nil)
	}

	req := validation.WarrantyCreate{
		ClientName:       c.FormValue("clientName"),
		ProductInfo:      c.FormValue("productInfo"),
		InstallationDate: c.FormValue("installationDate"),
	}
	if errs := req.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	f, err := fh.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read invoice file", nil)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxInvoiceSize+1))
	if err != nil {
		return response.BadRequest(c, "Failed to read invoice file", nil)
	}
	if len(data) > MaxInvoiceSize {
		return response.BadRequest(c, "Invoice file must not exceed 10MB", nil)
	}

	w, err := h.svc.Create(c.UserContext(), auth.CurrentUser(c).ID, Submission{
		ClientName:       req.ClientName,
		ProductInfo:      req.ProductInfo,
		InstallationDate: req.InstalledAt(),
		Invoice: ocr.Document{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		},
	})
	if err != nil {
		log.Printf("❌ create warranty: %v", err)
		return response.InternalError(c, "Failed to create warranty")
	}

	return response.Created(c, w, "Warranty registered successfully")
}

func (h *Handler) FindMine(c *fiber.Ctx) error {
	params, errs := pagination.Parse(c, ListOptions)
	if errs != nil {
		return response.BadRequest(c, "Invalid query parameters", errs)
	}

	warranties, total, err := h.svc.FindMine(c.UserContext(), auth.CurrentUser(c).ID, params)
	if err != nil {
		log.Printf("❌ list own warranties: %v", err)
		return response.InternalError(c, "Failed to fetch warranties")
	}

	return response.Paginated(c, "warranties", warranties, len(warranties),
		response.CalculateMeta(params.Page, params.Limit, total), "Warranties retrieved successfully")
}

func (h *Handler) FindAll(c *fiber.Ctx) error {
	params, errs := pagination.Parse(c, ListOptions)
	if errs != nil {
		return response.BadRequest(c, "Invalid query parameters", errs)
	}

	warranties, total, err := h.svc.FindAll(c.UserContext(), params)
	if err != nil {
		log.Printf("❌ list warranties: %v", err)
		return response.InternalError(c, "Failed to fetch warranties")
	}

	views := make([]models.WarrantyView, len(warranties))
	for i, w := range warranties {
		views[i] = models.NewWarrantyView(w)
	}

	return response.Paginated(c, "warranties", views, len(views),
		response.CalculateMeta(params.Page, params.Limit, total), "Warranties retrieved successfully")
}

// FindOne is open to admins and to the warranty's owner.
func (h *Handler) FindOne(c *fiber.Ctx) error {
	id, ok, err := parseID(c)
	if !ok {
		return err
	}

	w, err := h.svc.FindOne(c.UserContext(), id)
	if err != nil {
		return fail(c, id, err)
	}

	current := auth.CurrentUser(c)
	if !current.IsAdmin() && w.UserID != current.ID {
		return response.Forbidden(c, "You don't have permission to access this resource")
	}

	return response.Success(c, models.NewWarrantyView(*w), "Warranty retrieved successfully")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	id, ok, err := parseID(c)
	if !ok {
		return err
	}

	var body validation.WarrantyUpdate
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return response.BadRequest(c, "Invalid request body", err.Error())
		}
	}
	if body.Empty() {
		return response.BadRequest(c, "No fields provided for update", nil)
	}
	if errs := body.Validate(); errs != nil {
		return response.ValidationError(c, errs)
	}

	w, err := h.svc.Update(c.UserContext(), id, body.Changes())
	if err != nil {
		return fail(c, id, err)
	}
	return response.Success(c, models.NewWarrantyView(*w), "Warranty updated successfully")
}

func (h *Handler) Remove(c *fiber.Ctx) error {
	id, ok, err := parseID(c)
	if !ok {
		return err
	}

	w, err := h.svc.Remove(c.UserContext(), id)
	if err != nil {
		return fail(c, id, err)
	}
	return response.Success(c, models.NewWarrantyView(*w), "Warranty deleted successfully")
}

func parseID(c *fiber.Ctx) (uint, bool, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, false, response.BadRequest(c, "Invalid warranty ID", nil)
	}
	return uint(id), true, nil
}

func fail(c *fiber.Ctx, id uint, err error) error {
	if errors.Is(err, ErrNotFound) {
		return response.NotFound(c, fmt.Sprintf("Warranty with ID %d not found", id))
	}
	log.Printf("❌ warranty %d: %v", id, err)
	return response.InternalError(c, "Something went wrong")
}
