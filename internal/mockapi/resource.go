package mockapi

import (
	"cmp"
	"slices"
	"strings"
	"sync"
)

// field reads one sortable value of T. Exactly one of the results is used,
// chosen by the kind the field was registered with.
type field[T any] struct {
	str func(T) string
	num func(T) float64
}

func strField[T any](f func(T) string) field[T]  { return field[T]{str: f} }
func numField[T any](f func(T) float64) field[T] { return field[T]{num: f} }

func (f field[T]) compare(a, b T) int {
	if f.str != nil {
		return strings.Compare(strings.ToLower(f.str(a)), strings.ToLower(f.str(b)))
	}
	return cmp.Compare(f.num(a), f.num(b))
}

// resource is an in-memory table of T keyed by id.
type resource[T any] struct {
	mu     sync.RWMutex
	rows   map[int64]T
	nextID int64

	id     func(T) int64
	fields map[string]field[T]
	// searchable returns the texts a search term is matched against.
	searchable func(T) []string
}

func newResource[T any](id func(T) int64, fields map[string]field[T], searchable func(T) []string) *resource[T] {
	return &resource[T]{rows: make(map[int64]T), nextID: 1, id: id, fields: fields, searchable: searchable}
}

type listQuery struct {
	search string
	sorts  []sortKey
	skip   int
	take   int // 0 means all
}

type sortKey struct {
	field string
	desc  bool
}

func (r *resource[T]) list(q listQuery) []T {
	r.mu.RLock()
	out := make([]T, 0, len(r.rows))
	term := strings.ToLower(strings.TrimSpace(q.search))
	for _, row := range r.rows {
		if term == "" || r.matches(row, term) {
			out = append(out, row)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b T) int {
		for _, s := range q.sorts {
			f, ok := r.fields[s.field]
			if !ok {
				continue
			}
			c := f.compare(a, b)
			if s.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(r.id(a), r.id(b))
	})

	if q.skip > 0 {
		if q.skip >= len(out) {
			return []T{}
		}
		out = out[q.skip:]
	}
	if q.take > 0 && q.take < len(out) {
		out = out[:q.take]
	}
	return out
}

func (r *resource[T]) matches(row T, term string) bool {
	for _, s := range r.searchable(row) {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func (r *resource[T]) get(id int64) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	return row, ok
}

// upsert stores the row built by build. A nil id allocates a new one; an
// unknown id reports false.
func (r *resource[T]) upsert(id *int64, build func(id int64, existing *T) T) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == nil {
		newID := r.nextID
		r.nextID++
		row := build(newID, nil)
		r.rows[newID] = row
		return row, true
	}
	existing, ok := r.rows[*id]
	if !ok {
		var zero T
		return zero, false
	}
	row := build(*id, &existing)
	r.rows[*id] = row
	return row, true
}

func (r *resource[T]) delete(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false
	}
	delete(r.rows, id)
	return true
}

func (r *resource[T]) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
