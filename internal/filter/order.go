package filter

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazydesk/internal/apperr"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type OrderTerm struct {
	Column    string
	Direction Direction
}

type Order []OrderTerm

func (o Order) String() string {
	parts := make([]string, 0, len(o))
	for _, term := range o {
		parts = append(parts, term.Column+":"+string(term.Direction))
	}
	return strings.Join(parts, ",")
}

// ParseOrder parses "column[:DIR][,column[:DIR]...]"; "column=DIR" is
// accepted too. Columns must be registered and may appear once.
func (r *Registry) ParseOrder(raw string) (Order, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var order Order
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		column, dir, found := strings.Cut(part, ":")
		if !found {
			column, dir, _ = strings.Cut(part, "=")
		}
		column = strings.TrimSpace(column)
		if _, ok := r.Column(column); !ok {
			return nil, apperr.Invalid("order", part, "unknown column "+strconv.Quote(column))
		}
		for _, term := range order {
			if term.Column == column {
				return nil, apperr.Invalid("order", part, "column ordered twice")
			}
		}

		direction := Asc
		switch strings.ToUpper(strings.TrimSpace(dir)) {
		case "", "ASC":
		case "DESC":
			direction = Desc
		default:
			return nil, apperr.Invalid("order", part, "direction must be ASC or DESC")
		}
		order = append(order, OrderTerm{Column: column, Direction: direction})
	}
	return order, nil
}

const (
	// AllRows as a limit disables pagination.
	AllRows      = 999
	DefaultLimit = 10
)

type Pagination struct {
	Limit int
	Page  int
}

func (p Pagination) All() bool { return p.Limit == AllRows }

func (p Pagination) Offset() int {
	if p.All() || p.Page <= 1 {
		return 0
	}
	return p.Limit * (p.Page - 1)
}

// PageCount is the number of pages needed for total rows.
func (p Pagination) PageCount(total int) int {
	if p.All() || p.Limit <= 0 {
		return 1
	}
	return (total + p.Limit - 1) / p.Limit
}

func ParsePagination(limit, page string) (Pagination, error) {
	p := Pagination{Limit: DefaultLimit, Page: 1}

	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return Pagination{}, apperr.Invalid("limit", limit, "expected a positive integer")
		}
		p.Limit = n
	}
	if page = strings.TrimSpace(page); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n <= 0 {
			return Pagination{}, apperr.Invalid("page", page, "expected a positive integer")
		}
		p.Page = n
	}
	if !p.All() && p.Page-1 > math.MaxInt/p.Limit {
		return Pagination{}, apperr.Invalid("page", page, "page is out of range")
	}
	return p, nil
}

func PaginationFromParams(values url.Values) (Pagination, error) {
	return ParsePagination(values.Get("limit"), values.Get("page"))
}
