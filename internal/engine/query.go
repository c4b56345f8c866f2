package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

// Reserved listing query parameters. Every other parameter is a filter.
const (
	ParamSearch = "q"
	ParamSort   = "s"
	ParamPage   = "page"
)

// ListParams are the request-supplied listing parameters.
type ListParams struct {
	Search  string              `json:"q"`
	Sort    string              `json:"s"`
	Page    int                 `json:"page"`
	Filters map[string][]string `json:"filters"`
}

// ParseListParams reads search, sort, page and multi-valued filter
// arguments from the query string.
func ParseListParams(c *fiber.Ctx) ListParams {
	p := ListParams{
		Search:  strings.TrimSpace(c.Query(ParamSearch)),
		Sort:    c.Query(ParamSort),
		Page:    c.QueryInt(ParamPage, 1),
		Filters: make(map[string][]string),
	}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key == ParamSearch || key == ParamSort || key == ParamPage || len(v) == 0 {
			return
		}
		p.Filters[key] = append(p.Filters[key], string(v))
	})
	return p
}

// Query is a listing over the scoped rows of one entity. Clauses are
// accumulated and executed by the storage collaborator on Paginate.
type Query struct {
	// Fields is the effective field list, identifier excluded unless it was
	// explicitly requested.
	Fields []string

	storage Storage
	cfg     *frontend.EntityConfig
	list    *store.ListQuery
}

// Fetch starts a listing of cfg's entity narrowed by the principal's scope.
// A field list containing the identifier is fetched as is; an empty list
// fetches every column; otherwise the identifier is added for addressing.
func Fetch(ctx context.Context, storage Storage, cfg *frontend.EntityConfig, user *metadata.UserContext, fields []string) (*Query, error) {
	entity := cfg.Entity
	id := entity.ID()
	q := &Query{
		storage: storage,
		cfg:     cfg,
		list:    &store.ListQuery{Entity: entity, Scope: cfg.Scope(user)},
	}

	switch {
	case contains(fields, id):
		q.list.Columns = append([]string(nil), fields...)
		q.Fields = append([]string(nil), fields...)
	case len(fields) == 0:
		probe := q.list.Clone()
		probe.Limit = 1
		rs, err := storage.Query(ctx, probe)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", entity.Key(), err)
		}
		if len(rs.Rows) > 0 {
			q.Fields = without(rs.Columns, id)
		} else {
			q.Fields = entity.DataFieldNames()
		}
	default:
		q.list.Columns = append(append([]string(nil), fields...), id)
		q.Fields = append([]string(nil), fields...)
	}
	return q, nil
}

// ApplySearch keeps rows where any search field contains text,
// case-insensitively. It is a no-op when either argument is empty.
func (q *Query) ApplySearch(searchFields []string, text string) *Query {
	if len(searchFields) == 0 || text == "" {
		return q
	}
	q.list.Search = &store.SearchClause{Fields: append([]string(nil), searchFields...), Text: text}
	return q
}

// ApplyFilter keeps rows matching any listed value of each filtered field,
// and all filtered fields at once. Arguments for fields outside
// filterFields are ignored.
func (q *Query) ApplyFilter(filterFields []string, args map[string][]string) *Query {
	for _, field := range filterFields {
		values := nonEmpty(args[field])
		if len(values) == 0 {
			continue
		}
		q.list.Filters = append(q.list.Filters, store.FilterClause{Field: field, Values: values})
	}
	return q
}

// ApplySort orders by arg when arg is one of sortFields, optionally
// prefixed with "-" for descending. Anything else leaves the order alone.
func (q *Query) ApplySort(sortFields []string, arg string) *Query {
	field, desc := arg, false
	if strings.HasPrefix(arg, "-") {
		field, desc = arg[1:], true
	}
	if field == "" || !contains(sortFields, field) {
		return q
	}
	q.list.Sort = &store.OrderClause{Field: field, Desc: desc}
	return q
}

// ListQuery returns a copy of the accumulated storage query.
func (q *Query) ListQuery() *store.ListQuery {
	return q.list.Clone()
}

// FilterGroup is the selectable values of one filterable field.
type FilterGroup struct {
	Field   string            `json:"field"`
	Label   string            `json:"label"`
	Choices []metadata.Choice `json:"choices"`
}

// FilterOptions returns, per filter field, its declared choices or else the
// distinct values present within the principal's scope.
func FilterOptions(ctx context.Context, storage Storage, cfg *frontend.EntityConfig, user *metadata.UserContext) ([]FilterGroup, error) {
	out := make([]FilterGroup, 0, len(cfg.FilterFields))
	for _, name := range cfg.FilterFields {
		f := cfg.Entity.GetField(name)
		if f == nil {
			continue
		}
		g := FilterGroup{Field: name, Label: f.VerboseName()}
		if f.IsEnum() {
			g.Choices = f.Choices
		} else {
			values, err := storage.Distinct(ctx, &store.ListQuery{Entity: cfg.Entity, Scope: cfg.Scope(user)}, name)
			if err != nil {
				return nil, fmt.Errorf("filter options %s.%s: %w", cfg.Entity.Key(), name, err)
			}
			g.Choices = make([]metadata.Choice, 0, len(values))
			for _, v := range values {
				s := formatValue(f, v)
				g.Choices = append(g.Choices, metadata.Choice{Value: s, Label: s})
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
