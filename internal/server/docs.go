package server

import (
	"sort"
	"strings"

	"github.com/Kyz7/warranty/internal/models"
	"github.com/Kyz7/warranty/internal/pagination"
	"github.com/Kyz7/warranty/internal/user"
	"github.com/Kyz7/warranty/internal/validation"
	"github.com/Kyz7/warranty/internal/warranty"
	"github.com/gofiber/fiber/v2"
)

type APIEndpoint struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	Description string                 `json:"description"`
	Auth        bool                   `json:"auth_required"`
	Roles       []string               `json:"roles,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	RequestBody map[string]interface{} `json:"request_body,omitempty"`
	Response    map[string]interface{} `json:"response_example,omitempty"`
}

type APIReference struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	BaseURL     string        `json:"base_url"`
	Endpoints   []APIEndpoint `json:"endpoints"`
}

func apiReferenceHandler(prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(APIReference{
			Name:        "Warranty API",
			Description: "Warranty registration with OCR-checked invoices",
			BaseURL:     c.BaseURL() + prefix,
			Endpoints:   apiEndpoints(),
		})
	}
}

func openAPIHandler(prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(generateOpenAPISpec(c.BaseURL()+prefix, apiEndpoints()))
	}
}

func idParam(what string) map[string]interface{} {
	return map[string]interface{}{
		"id": map[string]interface{}{"type": "integer", "required": true, "in": "path", "description": what + " ID"},
	}
}

func listParams(opts pagination.Options) map[string]interface{} {
	sortFields := make([]string, 0, len(opts.SortFields))
	for name := range opts.SortFields {
		sortFields = append(sortFields, name)
	}
	sort.Strings(sortFields)

	return map[string]interface{}{
		"page":      map[string]interface{}{"type": "integer", "default": pagination.DefaultPage, "maximum": pagination.MaxPage, "in": "query"},
		"limit":     map[string]interface{}{"type": "integer", "default": pagination.DefaultLimit, "maximum": pagination.MaxLimit, "in": "query"},
		"sortBy":    map[string]interface{}{"type": "string", "enum": sortFields, "default": opts.DefaultSort, "in": "query"},
		"sortOrder": map[string]interface{}{"type": "string", "enum": []string{"asc", "desc"}, "default": "desc", "in": "query"},
		"search":    map[string]interface{}{"type": "string", "in": "query"},
	}
}

func tokenPair() map[string]interface{} {
	return map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"accessToken": "<jwt>", "refreshToken": "<jwt>"},
	}
}

var (
	anyRole   = []string{models.RoleAdmin, models.RoleUser}
	adminOnly = []string{models.RoleAdmin}
	userOnly  = []string{models.RoleUser}
)

func apiEndpoints() []APIEndpoint {
	credentials := map[string]interface{}{"email": "string", "password": "string"}
	statuses := []models.WarrantyStatus{models.StatusPending, models.StatusApproved, models.StatusRejected, models.StatusManualReview}

	return []APIEndpoint{
		{
			Method:      "POST",
			Path:        "/auth/signup",
			Description: "Register a user account",
			RequestBody: map[string]interface{}{
				"username": "string (3-20 chars)",
				"email":    "string",
				"password": "string (8-32 chars, upper, lower, digit, one of " + validation.PasswordSpecials + ")",
			},
		},
		{Method: "POST", Path: "/auth/signin", Description: "Sign in and receive an access/refresh token pair", RequestBody: credentials, Response: tokenPair()},
		{Method: "POST", Path: "/auth/signin-admin", Description: "Admin sign-in; the refresh token is set as an httpOnly cookie", RequestBody: credentials},
		{Method: "POST", Path: "/auth/refresh-token", Description: "Exchange a refresh token for a new access token", RequestBody: map[string]interface{}{"refreshToken": "string"}},
		{Method: "GET", Path: "/auth/refresh-token-admin", Description: "Refresh an admin session from its cookie"},
		{Method: "POST", Path: "/auth/logout", Description: "Revoke a refresh token; data is false when nothing was revoked", RequestBody: map[string]interface{}{"refreshToken": "string"}},
		{Method: "GET", Path: "/auth/logout-admin", Description: "End an admin session and expire its cookie"},
		{Method: "POST", Path: "/auth/forgot-password", Description: "Issue a single-use password reset token", RequestBody: map[string]interface{}{"email": "string"}},
		{Method: "POST", Path: "/auth/reset-password", Description: "Set a new password with a reset token", RequestBody: map[string]interface{}{"token": "string", "newPassword": "string"}},

		{Method: "GET", Path: "/users", Description: "List users", Auth: true, Roles: adminOnly, Parameters: listParams(user.ListOptions)},
		{Method: "GET", Path: "/users/{id}", Description: "Get a user (admin or the user)", Auth: true, Roles: anyRole, Parameters: idParam("User")},
		{
			Method:      "PUT",
			Path:        "/users/{id}",
			Description: "Update a user (admin or the user)",
			Auth:        true,
			Roles:       anyRole,
			Parameters:  idParam("User"),
			RequestBody: map[string]interface{}{
				"username": "string",
				"email":    "string",
				"password": "string",
				"bio":      map[string]interface{}{"welcomeMessage": "string", "avatar": "string"},
			},
		},
		{Method: "DELETE", Path: "/users/{id}", Description: "Delete a user and their warranties", Auth: true, Roles: anyRole, Parameters: idParam("User")},

		{
			Method:      "POST",
			Path:        "/warranties",
			Description: "Register a warranty; the invoice date decides the status",
			Auth:        true,
			Roles:       userOnly,
			RequestBody: map[string]interface{}{
				"content_type":        "multipart/form-data",
				"clientName":          "string",
				"productInfo":         "string",
				"installationDate":    "YYYY-MM-DD",
				warranty.InvoiceField: "file (pdf, jpeg, jpg, png; max 10MB)",
			},
			Response: map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"status": statuses},
			},
		},
		{Method: "GET", Path: "/warranties/mine", Description: "List the caller's warranties", Auth: true, Roles: userOnly, Parameters: listParams(warranty.ListOptions)},
		{Method: "GET", Path: "/warranties", Description: "List all warranties with their owners", Auth: true, Roles: adminOnly, Parameters: listParams(warranty.ListOptions)},
		{Method: "GET", Path: "/warranties/{id}", Description: "Get a warranty (admin or owner)", Auth: true, Roles: anyRole, Parameters: idParam("Warranty")},
		{
			Method:      "PUT",
			Path:        "/warranties/{id}",
			Description: "Update a warranty, including its status",
			Auth:        true,
			Roles:       adminOnly,
			Parameters:  idParam("Warranty"),
			RequestBody: map[string]interface{}{
				"clientName":       "string",
				"productInfo":      "string",
				"installationDate": "YYYY-MM-DD",
				"status":           statuses,
			},
		},
		{Method: "DELETE", Path: "/warranties/{id}", Description: "Delete a warranty and its invoice", Auth: true, Roles: adminOnly, Parameters: idParam("Warranty")},
	}
}

func generateOpenAPISpec(serverURL string, endpoints []APIEndpoint) map[string]interface{} {
	paths := map[string]map[string]interface{}{}
	for _, e := range endpoints {
		op := map[string]interface{}{
			"summary": e.Description,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{"description": "Success"},
			},
		}
		if e.Auth {
			op["security"] = []map[string]interface{}{{"BearerAuth": []string{}}}
		}
		if len(e.Parameters) > 0 {
			names := make([]string, 0, len(e.Parameters))
			for name := range e.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)

			var params []map[string]interface{}
			for _, name := range names {
				p := e.Parameters[name].(map[string]interface{})
				params = append(params, map[string]interface{}{
					"name":     name,
					"in":       p["in"],
					"required": p["in"] == "path",
					"schema":   map[string]interface{}{"type": p["type"]},
				})
			}
			op["parameters"] = params
		}
		if e.RequestBody != nil {
			mime := "application/json"
			if ct, ok := e.RequestBody["content_type"].(string); ok {
				mime = ct
			}
			op["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					mime: map[string]interface{}{"example": e.RequestBody},
				},
			}
		}

		if paths[e.Path] == nil {
			paths[e.Path] = map[string]interface{}{}
		}
		paths[e.Path][strings.ToLower(e.Method)] = op
	}

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Warranty API",
			"description": "Warranty registration backend",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": serverURL, "description": "API Server"},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"BearerAuth": map[string]interface{}{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}
