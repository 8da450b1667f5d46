package cashcard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// sortColumns whitelists sortable fields and maps them to SQL columns.
var sortColumns = map[string]string{
	"amount": "amount",
	"id":     "id",
}

// Sort is a single-field ordering directive.
type Sort struct {
	Field string
	Desc  bool
}

// Page carries pagination and ordering for list queries.
type Page struct {
	Number int
	Size   int
	Sort   Sort
}

// DefaultPage returns the first page of 20 records ordered by amount descending.
func DefaultPage() Page {
	return Page{Number: 0, Size: defaultPageSize, Sort: Sort{Field: "amount", Desc: true}}
}

// ParsePage reads page, size and sort query parameters, falling back to
// the defaults for parameters that are absent.
func ParsePage(q url.Values) (Page, error) {
	p := DefaultPage()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid page %q", v)
		}
		p.Number = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Page{}, fmt.Errorf("invalid size %q", v)
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.Size = n
	}
	if v := q.Get("sort"); v != "" {
		s, err := parseSort(v)
		if err != nil {
			return Page{}, err
		}
		p.Sort = s
	}

	return p, nil
}

// parseSort accepts "field" or "field,asc|desc".
func parseSort(v string) (Sort, error) {
	field, dir, hasDir := strings.Cut(v, ",")
	if _, ok := sortColumns[field]; !ok {
		return Sort{}, fmt.Errorf("unknown sort field %q", field)
	}
	s := Sort{Field: field}
	if hasDir {
		switch strings.ToLower(dir) {
		case "asc":
		case "desc":
			s.Desc = true
		default:
			return Sort{}, fmt.Errorf("invalid sort direction %q", dir)
		}
	}
	return s, nil
}

// orderBy renders the sort as a SQL ORDER BY expression. The field has
// been checked against the whitelist at parse time.
func (p Page) orderBy() string {
	dir := "ASC"
	if p.Sort.Desc {
		dir = "DESC"
	}
	return sortColumns[p.Sort.Field] + " " + dir
}

func (p Page) offset() int {
	return p.Number * p.Size
}
