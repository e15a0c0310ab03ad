package query

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

const builderTestPrefix = "query:builder_test"

func TestBuild_SortClausesAligned(t *testing.T) {
	got := New().SortBy("name", "").SortBy("code", Desc).Build()

	if got["sortBy"] != "name,code" {
		t.Errorf("%s - sortBy = %v, want name,code", builderTestPrefix, got["sortBy"])
	}
	if got["sortDirection"] != "asc,desc" {
		t.Errorf("%s - sortDirection = %v, want asc,desc", builderTestPrefix, got["sortDirection"])
	}
}

func TestBuild_DuplicateSortKept(t *testing.T) {
	got := New().SortBy("name", Asc).SortBy("name", Desc).Build()
	if got["sortBy"] != "name,name" {
		t.Errorf("%s - sortBy = %v, want name,name", builderTestPrefix, got["sortBy"])
	}
}

func TestBuild_RangeFilter(t *testing.T) {
	tests := []struct {
		name    string
		min     any
		max     any
		wantMin any
		wantMax any
	}{
		{"both bounds", 10, 100, 10, 100},
		{"max only", nil, 100, nil, 100},
		{"min only", 10, nil, 10, nil},
		{"typed nil pointer", (*int)(nil), 5, nil, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().FilterByRange("price", tt.min, tt.max).Build()

			gotMin, hasMin := got["priceMin"]
			if tt.wantMin == nil && hasMin {
				t.Errorf("%s - priceMin present = %v, want absent", builderTestPrefix, gotMin)
			}
			if tt.wantMin != nil && gotMin != tt.wantMin {
				t.Errorf("%s - priceMin = %v, want %v", builderTestPrefix, gotMin, tt.wantMin)
			}
			gotMax, hasMax := got["priceMax"]
			if tt.wantMax == nil && hasMax {
				t.Errorf("%s - priceMax present = %v, want absent", builderTestPrefix, gotMax)
			}
			if tt.wantMax != nil && gotMax != tt.wantMax {
				t.Errorf("%s - priceMax = %v, want %v", builderTestPrefix, gotMax, tt.wantMax)
			}
			if _, ok := got["price"]; ok {
				t.Errorf("%s - range filter must not emit the bare field", builderTestPrefix)
			}
		})
	}
}

func TestBuild_FilterOverwrites(t *testing.T) {
	got := New().FilterBy("brandCode", "A").FilterBy("brandCode", "B").Build()
	if got["brandCode"] != "B" {
		t.Errorf("%s - brandCode = %v, want B", builderTestPrefix, got["brandCode"])
	}
}

func TestBuild_FilterKeyCollisionFollowsInsertionOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
		want  any
	}{
		{"range set last", func() *Builder {
			return New().FilterBy("priceMin", 1).FilterByRange("price", 10, nil)
		}, 10},
		{"plain filter set last", func() *Builder {
			return New().FilterByRange("price", 10, nil).FilterBy("priceMin", 1)
		}, 1},
		{"overwrite keeps first position", func() *Builder {
			return New().FilterBy("priceMin", 1).FilterByRange("price", 10, nil).FilterBy("priceMin", 2)
		}, 10},
	}
	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			if got := tt.build().Build()["priceMin"]; got != tt.want {
				t.Fatalf("%s - %s: run %d priceMin = %v, want %v", builderTestPrefix, tt.name, i, got, tt.want)
			}
		}
	}
}

func TestBuild_OptionalKeysOmitted(t *testing.T) {
	got := New().Build()
	for _, k := range []string{"sortBy", "sortDirection", "skip", "take", "search", "include"} {
		if _, ok := got[k]; ok {
			t.Errorf("%s - key %q present on empty builder", builderTestPrefix, k)
		}
	}

	got = New().Search("").Build()
	if _, ok := got["search"]; ok {
		t.Errorf("%s - empty search must be omitted", builderTestPrefix)
	}
}

func TestBuild_Pagination(t *testing.T) {
	got := New().PaginateDefault().Build()
	if got["skip"] != 0 || got["take"] != 10 {
		t.Errorf("%s - default pagination = %v/%v, want 0/10", builderTestPrefix, got["skip"], got["take"])
	}

	got = New().Paginate(20, 5).Build()
	if got["skip"] != 20 || got["take"] != 5 {
		t.Errorf("%s - pagination = %v/%v, want 20/5", builderTestPrefix, got["skip"], got["take"])
	}
}

func TestBuild_StructuredKeysWinOverCustomParams(t *testing.T) {
	got := New().
		AddParam("search", "custom").
		AddParam("warehouse", 3).
		Search("real").
		Build()

	if got["search"] != "real" {
		t.Errorf("%s - search = %v, want real", builderTestPrefix, got["search"])
	}
	if got["warehouse"] != 3 {
		t.Errorf("%s - warehouse = %v, want 3", builderTestPrefix, got["warehouse"])
	}
}

func TestBuildQueryString_IncludeSingleKey(t *testing.T) {
	qs := New().Include("a", "b").BuildQueryString()
	if !strings.Contains(qs, "include=a%2Cb") {
		t.Errorf("%s - query string = %q, want include=a%%2Cb", builderTestPrefix, qs)
	}
	if strings.Count(qs, "include=") != 1 {
		t.Errorf("%s - query string = %q, want a single include key", builderTestPrefix, qs)
	}
}

func TestBuildQueryString_ArrayValues(t *testing.T) {
	qs := New().FilterBy("warehouseID", []int{1, 2}).BuildQueryString()
	values, err := url.ParseQuery(qs)
	if err != nil {
		t.Fatalf("%s - ParseQuery: %v", builderTestPrefix, err)
	}
	got := values["warehouseID[]"]
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("%s - warehouseID[] = %v, want [1 2]", builderTestPrefix, got)
	}
}

func TestBuildQueryString_NeverEmitsNilText(t *testing.T) {
	var missing *string
	qs := New().
		FilterBy("brandName", nil).
		FilterBy("createdBy", missing).
		FilterBy("tags", []any{"x", nil}).
		FilterByRange("quantity", nil, nil).
		AddParam("extra", nil).
		BuildQueryString()

	for _, bad := range []string{"undefined", "null", "<nil>"} {
		if strings.Contains(qs, bad) {
			t.Errorf("%s - query string %q contains %q", builderTestPrefix, qs, bad)
		}
	}
	if qs != "tags%5B%5D=x" {
		t.Errorf("%s - query string = %q, want tags%%5B%%5D=x", builderTestPrefix, qs)
	}
}

func TestBuildQueryString_FormatsValues(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	qs := New().
		FilterBy("active", true).
		FilterByRange("createdDate", at, nil).
		BuildQueryString()

	values, err := url.ParseQuery(qs)
	if err != nil {
		t.Fatalf("%s - ParseQuery: %v", builderTestPrefix, err)
	}
	if values.Get("active") != "true" {
		t.Errorf("%s - active = %q, want true", builderTestPrefix, values.Get("active"))
	}
	if values.Get("createdDateMin") != "2024-03-01T12:00:00Z" {
		t.Errorf("%s - createdDateMin = %q", builderTestPrefix, values.Get("createdDateMin"))
	}
}

func TestBuildQueryString_Deterministic(t *testing.T) {
	a := New().FilterBy("b", 1).FilterBy("a", 2).SortBy("x", Desc).BuildQueryString()
	b := New().SortBy("x", Desc).FilterBy("a", 2).FilterBy("b", 1).BuildQueryString()
	if a != b {
		t.Errorf("%s - %q != %q", builderTestPrefix, a, b)
	}
}
