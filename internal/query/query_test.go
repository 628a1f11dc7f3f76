package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = Columns{
	Search:    "p.name",
	Category:  "p.category",
	Brand:     "p.brand",
	Price:     "p.price",
	CreatedAt: "p.created_at",
	ID:        "p.id",
}

func TestBuildDefaults(t *testing.T) {
	plan := Build(Filters{})

	assert.Equal(t, 1, plan.Page)
	assert.Equal(t, DefaultLimit, plan.Limit)
	assert.Equal(t, 0, plan.Offset)
	assert.Equal(t, SortByCreatedAt, plan.SortField)
	assert.Equal(t, SortOrderDesc, plan.SortOrder)
	assert.Nil(t, plan.MaxPrice)
}

func TestBuildClampsPagination(t *testing.T) {
	plan := Build(Filters{Page: -3, Limit: 0})
	assert.Equal(t, 1, plan.Page)
	assert.Equal(t, DefaultLimit, plan.Limit)

	plan = Build(Filters{Page: 3, Limit: 5000})
	assert.Equal(t, MaxLimit, plan.Limit)
	assert.Equal(t, 200, plan.Offset)
}

func TestBuildClampsHugePages(t *testing.T) {
	values := url.Values{"page": {"9223372036854775807"}, "limit": {"100"}}
	plan := Build(ParseFilters(values, DefaultLimit))

	assert.Equal(t, MaxOffset/100+1, plan.Page)
	assert.Equal(t, MaxOffset, plan.Offset)

	meta := NewPage(plan, 5)
	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrev)

	meta = NewPage(Plan{Page: math.MaxInt, Limit: 100}, 5)
	assert.False(t, meta.HasNext, "unclamped plans do not overflow either")
}

func TestBuildPriceFilters(t *testing.T) {
	plan := Build(Filters{PriceFilter: PriceLowToHigh})
	assert.Equal(t, SortByPrice, plan.SortField)
	assert.Equal(t, SortOrderAsc, plan.SortOrder)

	plan = Build(Filters{PriceFilter: PriceHighToLow})
	assert.Equal(t, SortByPrice, plan.SortField)
	assert.Equal(t, SortOrderDesc, plan.SortOrder)

	plan = Build(Filters{PriceFilter: PriceUnderLimit, MaxPrice: decimal.NewFromInt(500)})
	require.NotNil(t, plan.MaxPrice)
	assert.True(t, plan.MaxPrice.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, SortByCreatedAt, plan.SortField)

	plan = Build(Filters{PriceFilter: PriceUnderLimit})
	assert.Nil(t, plan.MaxPrice, "under-limit without a ceiling degrades to no filter")

	plan = Build(Filters{PriceFilter: PriceFilter("cheapest-first")})
	assert.Equal(t, SortByCreatedAt, plan.SortField)
}

func TestBuildTreatsAllAsNoFilter(t *testing.T) {
	plan := Build(Filters{Category: "all", Brand: " ALL "})
	assert.Empty(t, plan.Category)
	assert.Empty(t, plan.Brand)
}

func TestParseFilters(t *testing.T) {
	values := url.Values{
		"search":      {" remera "},
		"category":    {"Ropa"},
		"priceFilter": {"Under-Limit"},
		"maxPrice":    {"1500.50"},
		"page":        {"2"},
		"limit":       {"abc"},
	}

	f := ParseFilters(values, 14)
	assert.Equal(t, " remera ", f.Search)
	assert.Equal(t, "Ropa", f.Category)
	assert.Equal(t, PriceUnderLimit, f.PriceFilter)
	assert.True(t, f.MaxPrice.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 14, f.Limit)

	plan := Build(f)
	assert.Equal(t, "remera", plan.Search)
	assert.Equal(t, 14, plan.Offset)
}

func TestClauseRendersFiltersAndOrder(t *testing.T) {
	maxPrice := decimal.NewFromInt(900)
	plan := Plan{
		Search:    "50%_off",
		Category:  "Ropa",
		Brand:     "Acme",
		MaxPrice:  &maxPrice,
		SortField: SortByPrice,
		SortOrder: SortOrderAsc,
		Page:      1,
		Limit:     10,
	}

	clause := plan.Clause(productColumns)
	assert.Equal(t, "WHERE p.name ILIKE $1 AND p.category = $2 AND p.brand = $3 AND p.price <= $4", clause.Where)
	assert.Equal(t, "ORDER BY p.price ASC, p.id ASC", clause.OrderBy)
	require.Len(t, clause.Args, 4)
	assert.Equal(t, `%50\%\_off%`, clause.Args[0])

	limit, args := plan.LimitOffset(clause)
	assert.Equal(t, "LIMIT $5 OFFSET $6", limit)
	assert.Equal(t, []interface{}{10, 0}, args[4:])
	assert.Len(t, clause.Args, 4)
}

func TestClauseIgnoresUnsupportedColumns(t *testing.T) {
	plan := Build(Filters{Search: "zapas", Category: "Ropa", PriceFilter: PriceHighToLow})

	clause := plan.Clause(Columns{Search: "name", CreatedAt: "created_at", ID: "id"})
	assert.Equal(t, "WHERE name ILIKE $1", clause.Where)
	assert.Equal(t, "ORDER BY created_at DESC, id DESC", clause.OrderBy)
}

func TestNewPage(t *testing.T) {
	page := NewPage(Plan{Page: 2, Limit: 10}, 25)
	assert.Equal(t, Page{Total: 25, Page: 2, Limit: 10, TotalPages: 3, HasNext: true, HasPrev: true}, page)

	page = NewPage(Plan{Page: 3, Limit: 10}, 25)
	assert.False(t, page.HasNext)

	page = NewPage(Plan{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestProperty_PlansAreBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("page and limit are always within bounds", prop.ForAll(
		func(page, limit, total int) bool {
			plan := Build(Filters{Page: page, Limit: limit})
			if plan.Page < 1 || plan.Limit < 1 || plan.Limit > MaxLimit {
				return false
			}
			if plan.Offset != (plan.Page-1)*plan.Limit || plan.Offset < 0 || plan.Offset > MaxOffset {
				return false
			}

			meta := NewPage(plan, total)
			return meta.TotalPages*plan.Limit >= total &&
				(meta.TotalPages-1)*plan.Limit < total || total == 0
		},
		gen.OneGenOf(gen.IntRange(-100, 1000), gen.IntRange(math.MaxInt-1000, math.MaxInt)),
		gen.IntRange(-100, 1000),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
