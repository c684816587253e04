// Package pagination parses list query parameters and applies them to GORM queries.
package pagination

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit well inside an int.
	MaxPage = 1_000_000
)

// Options describes what one resource allows.
type Options struct {
	// SortFields maps the public sortBy name to its column.
	SortFields    map[string]string
	DefaultSort   string
	SearchColumns []string
}

type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page, limit, sortBy, sortOrder and search. The second return
// value maps each rejected parameter to a message and is nil when all are valid.
func Parse(c *fiber.Ctx, opts Options) (Params, map[string]string) {
	p := Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    opts.DefaultSort,
		SortOrder: "desc",
		Search:    strings.TrimSpace(c.Query("search")),
	}
	errs := map[string]string{}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 1:
			errs["page"] = "page must be an integer >= 1"
		case n > MaxPage:
			errs["page"] = fmt.Sprintf("page must not exceed %d", MaxPage)
		default:
			p.Page = n
		}
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 1:
			errs["limit"] = "limit must be an integer >= 1"
		case n > MaxLimit:
			errs["limit"] = fmt.Sprintf("limit must not exceed %d", MaxLimit)
		default:
			p.Limit = n
		}
	}

	if v := c.Query("sortBy"); v != "" {
		if _, ok := opts.SortFields[v]; !ok {
			errs["sortBy"] = "sortBy must be one of " + strings.Join(sortNames(opts), ", ")
		} else {
			p.SortBy = v
		}
	}

	if v := c.Query("sortOrder"); v != "" {
		switch strings.ToLower(v) {
		case "asc", "desc":
			p.SortOrder = strings.ToLower(v)
		default:
			errs["sortOrder"] = "sortOrder must be asc or desc"
		}
	}

	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

// Filter narrows q to rows where any search column contains the search term,
// case-insensitively. LIKE wildcards in the term are matched literally.
func Filter(q *gorm.DB, p Params, opts Options) *gorm.DB {
	if p.Search == "" || len(opts.SearchColumns) == 0 {
		return q
	}

	pattern := "%" + escapeLike(strings.ToLower(p.Search)) + "%"
	clauses := make([]string, 0, len(opts.SearchColumns))
	args := make([]interface{}, 0, len(opts.SearchColumns))
	for _, col := range opts.SearchColumns {
		clauses = append(clauses, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
		args = append(args, pattern)
	}

	return q.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

// Page applies ordering, offset and limit. Ties are broken by id so pages are stable.
func Page(q *gorm.DB, p Params, opts Options) *gorm.DB {
	column, ok := opts.SortFields[p.SortBy]
	if !ok {
		column = opts.SortFields[opts.DefaultSort]
	}
	order := column + " " + strings.ToUpper(p.SortOrder)
	if column != "id" {
		order += ", id " + strings.ToUpper(p.SortOrder)
	}

	return q.Order(order).Offset(p.Offset()).Limit(p.Limit)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func sortNames(opts Options) []string {
	names := make([]string, 0, len(opts.SortFields))
	for name := range opts.SortFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
