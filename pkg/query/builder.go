// Package query accumulates sort, filter, pagination, search and include intents
// and serializes them into a flat parameter set for list endpoints.
package query

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Default pagination window used by PaginateDefault.
const (
	DefaultSkip = 0
	DefaultTake = 10
)

type sortClause struct {
	Field     string
	Direction Direction
}

// rangeFilter holds the optional bounds of a range filter. A nil bound is omitted.
type rangeFilter struct {
	Min any
	Max any
}

// Builder accumulates query state. Keyed setters overwrite, SortBy and Include append.
// Builder is not safe for concurrent use.
type Builder struct {
	sorts       []sortClause
	filters     map[string]any
	filterOrder []string
	skip        *int
	take        *int
	search      string
	includes    []string
	params      map[string]any
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{
		filters: make(map[string]any),
		params:  make(map[string]any),
	}
}

// SortBy appends a sort clause. An empty direction means Asc.
// Calling SortBy twice for the same field yields two clauses.
func (b *Builder) SortBy(field string, dir Direction) *Builder {
	if dir == "" {
		dir = Asc
	}
	b.sorts = append(b.sorts, sortClause{Field: field, Direction: dir})
	return b
}

// FilterBy sets an exact-match filter. A slice value means "one of".
func (b *Builder) FilterBy(field string, value any) *Builder {
	b.setFilter(field, value)
	return b
}

// FilterByRange sets a range filter. Pass nil for a bound to leave that side open.
func (b *Builder) FilterByRange(field string, min, max any) *Builder {
	b.setFilter(field, rangeFilter{Min: min, Max: max})
	return b
}

// setFilter keeps the position of the first call for a field.
func (b *Builder) setFilter(field string, v any) {
	if _, ok := b.filters[field]; !ok {
		b.filterOrder = append(b.filterOrder, field)
	}
	b.filters[field] = v
}

// Paginate sets the pagination window.
func (b *Builder) Paginate(skip, take int) *Builder {
	b.skip = &skip
	b.take = &take
	return b
}

// PaginateDefault sets the pagination window to DefaultSkip/DefaultTake.
func (b *Builder) PaginateDefault() *Builder {
	return b.Paginate(DefaultSkip, DefaultTake)
}

// Search sets the free-text term, replacing any previous one.
func (b *Builder) Search(term string) *Builder {
	b.search = term
	return b
}

// Include appends relation names to load eagerly. Duplicates are kept.
func (b *Builder) Include(names ...string) *Builder {
	b.includes = append(b.includes, names...)
	return b
}

// AddParam sets a parameter not otherwise modeled by the builder.
func (b *Builder) AddParam(key string, value any) *Builder {
	b.params[key] = value
	return b
}

// Build returns the flat parameter mapping.
//
// Custom params are applied first and structured keys (sortBy, sortDirection,
// filters, skip, take, search, include) overwrite any colliding custom param.
// Filters are expanded in the order their fields were first set, so a later
// filter wins when a range bound and a plain filter share a key.
func (b *Builder) Build() map[string]any {
	out := make(map[string]any, len(b.params)+len(b.filters)+6)
	for k, v := range b.params {
		out[k] = v
	}

	if len(b.sorts) > 0 {
		fields := make([]string, len(b.sorts))
		dirs := make([]string, len(b.sorts))
		for i, s := range b.sorts {
			fields[i] = s.Field
			dirs[i] = string(s.Direction)
		}
		out["sortBy"] = strings.Join(fields, ",")
		out["sortDirection"] = strings.Join(dirs, ",")
	}

	for _, field := range b.filterOrder {
		v := b.filters[field]
		r, ok := v.(rangeFilter)
		if !ok {
			out[field] = v
			continue
		}
		if !isNil(r.Min) {
			out[field+"Min"] = r.Min
		}
		if !isNil(r.Max) {
			out[field+"Max"] = r.Max
		}
	}

	if b.skip != nil {
		out["skip"] = *b.skip
	}
	if b.take != nil {
		out["take"] = *b.take
	}
	if b.search != "" {
		out["search"] = b.search
	}
	if len(b.includes) > 0 {
		out["include"] = strings.Join(b.includes, ",")
	}
	return out
}

// Values converts Build into url.Values. Slice values become repeated "key[]"
// entries and nil values are dropped.
func (b *Builder) Values() url.Values {
	return ToValues(b.Build())
}

// BuildQueryString percent-encodes Build as a query string with keys in sorted order.
func (b *Builder) BuildQueryString() string {
	return b.Values().Encode()
}

// ToValues converts a flat parameter mapping into url.Values using the same
// rules as Builder.Values.
func ToValues(params map[string]any) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := params[k]
		if isNil(v) {
			continue
		}
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				item := rv.Index(i).Interface()
				if isNil(item) {
					continue
				}
				values.Add(k+"[]", formatValue(item))
			}
			continue
		}
		values.Set(k, formatValue(v))
	}
	return values
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		return t.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return formatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
