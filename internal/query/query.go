// Package query turns listing parameters into a bounded, deterministic query plan.
package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxOffset bounds how deep a listing can page.
	MaxOffset = 1_000_000
)

// PriceFilter selects price ordering or a price ceiling.
type PriceFilter string

const (
	PriceAll        PriceFilter = "all"
	PriceLowToHigh  PriceFilter = "low-to-high"
	PriceHighToLow  PriceFilter = "high-to-low"
	PriceUnderLimit PriceFilter = "under-limit"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// Filters are the raw listing parameters.
type Filters struct {
	Search      string
	Category    string
	Brand       string
	Status      string
	PriceFilter PriceFilter
	MaxPrice    decimal.Decimal
	Page        int
	Limit       int
}

// Plan is a normalized listing request. Zero-valued filter fields mean "no filter".
type Plan struct {
	Search    string
	Category  string
	Brand     string
	Status    string
	MaxPrice  *decimal.Decimal
	SortField SortField
	SortOrder SortOrder
	Page      int
	Limit     int
	Offset    int
}

// SortField is a logical sort key mapped to a column by Columns.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByPrice     SortField = "price"
)

// Build normalizes filters. Malformed values degrade to no filter.
func Build(f Filters) Plan {
	plan := Plan{
		Search:    strings.TrimSpace(f.Search),
		Category:  tagFilter(f.Category),
		Brand:     tagFilter(f.Brand),
		Status:    strings.TrimSpace(f.Status),
		SortField: SortByCreatedAt,
		SortOrder: SortOrderDesc,
		Page:      f.Page,
		Limit:     f.Limit,
	}

	switch f.PriceFilter {
	case PriceLowToHigh:
		plan.SortField, plan.SortOrder = SortByPrice, SortOrderAsc
	case PriceHighToLow:
		plan.SortField, plan.SortOrder = SortByPrice, SortOrderDesc
	case PriceUnderLimit:
		if f.MaxPrice.IsPositive() {
			maxPrice := f.MaxPrice
			plan.MaxPrice = &maxPrice
		}
	}

	if plan.Page < 1 {
		plan.Page = 1
	}
	if plan.Limit < 1 {
		plan.Limit = DefaultLimit
	}
	if plan.Limit > MaxLimit {
		plan.Limit = MaxLimit
	}
	if maxPage := MaxOffset/plan.Limit + 1; plan.Page > maxPage {
		plan.Page = maxPage
	}
	plan.Offset = (plan.Page - 1) * plan.Limit

	return plan
}

// ParseFilters reads listing parameters from a query string. Unparseable numbers are ignored.
func ParseFilters(values url.Values, defaultLimit int) Filters {
	f := Filters{
		Search:      values.Get("search"),
		Category:    values.Get("category"),
		Brand:       values.Get("brand"),
		Status:      values.Get("status"),
		PriceFilter: PriceFilter(strings.ToLower(strings.TrimSpace(values.Get("priceFilter")))),
		Page:        1,
		Limit:       defaultLimit,
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil {
		f.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil {
		f.Limit = limit
	}
	if maxPrice, err := decimal.NewFromString(strings.TrimSpace(values.Get("maxPrice"))); err == nil {
		f.MaxPrice = maxPrice
	}

	return f
}

func tagFilter(raw string) string {
	value := strings.TrimSpace(raw)
	if strings.EqualFold(value, "all") {
		return ""
	}
	return value
}

// Page is the pagination metadata returned with every listing.
type Page struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPage computes pagination metadata for plan given the total match count.
func NewPage(plan Plan, total int) Page {
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(plan.Limit)))
	return Page{
		Total:      total,
		Page:       plan.Page,
		Limit:      plan.Limit,
		TotalPages: totalPages,
		HasNext:    plan.Page < totalPages,
		HasPrev:    plan.Page > 1,
	}
}

// Columns maps plan fields onto a table. Empty entries disable that filter or sort.
type Columns struct {
	Search    string
	Category  string
	Brand     string
	Status    string
	Price     string
	CreatedAt string
	ID        string
}

// Clause is the SQL rendering of a plan. Args are positional starting at $1.
type Clause struct {
	Where   string
	Args    []interface{}
	OrderBy string
}

// Clause renders plan against cols. Column names come from the caller, values are always bound.
func (p Plan) Clause(cols Columns) Clause {
	var conditions []string
	var args []interface{}

	add := func(format string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if p.Search != "" && cols.Search != "" {
		add(cols.Search+" ILIKE $%d", "%"+escapeLike(p.Search)+"%")
	}
	if p.Category != "" && cols.Category != "" {
		add(cols.Category+" = $%d", p.Category)
	}
	if p.Brand != "" && cols.Brand != "" {
		add(cols.Brand+" = $%d", p.Brand)
	}
	if p.Status != "" && cols.Status != "" {
		add(cols.Status+" = $%d", p.Status)
	}
	if p.MaxPrice != nil && cols.Price != "" {
		add(cols.Price+" <= $%d", *p.MaxPrice)
	}

	clause := Clause{Args: args}
	if len(conditions) > 0 {
		clause.Where = "WHERE " + strings.Join(conditions, " AND ")
	}

	sortColumn := cols.CreatedAt
	order := p.SortOrder
	if p.SortField == SortByPrice && cols.Price != "" {
		sortColumn = cols.Price
	} else if p.SortField == SortByPrice {
		order = SortOrderDesc
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		order = SortOrderDesc
	}

	var parts []string
	if sortColumn != "" {
		parts = append(parts, fmt.Sprintf("%s %s", sortColumn, order))
	}
	if cols.ID != "" {
		parts = append(parts, fmt.Sprintf("%s %s", cols.ID, order))
	}
	if len(parts) > 0 {
		clause.OrderBy = "ORDER BY " + strings.Join(parts, ", ")
	}

	return clause
}

// LimitOffset returns the LIMIT/OFFSET fragment and its args, numbered after the clause args.
func (p Plan) LimitOffset(c Clause) (string, []interface{}) {
	next := len(c.Args) + 1
	args := append(append([]interface{}{}, c.Args...), p.Limit, p.Offset)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", next, next+1), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
