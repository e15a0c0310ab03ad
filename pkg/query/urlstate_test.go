package query

import (
	"net/url"
	"testing"
)

const urlStateTestPrefix = "query:urlstate_test"

type stockFilter struct {
	Search      string  `json:"search,omitempty"`
	WarehouseID []int64 `json:"warehouseID,omitempty"`
	Page        int     `json:"page"`
}

func TestState_SetAndRead(t *testing.T) {
	values := url.Values{}
	want := stockFilter{Search: "bolt", WarehouseID: []int64{1, 4}, Page: 2}
	if err := SetState(values, "filter", want); err != nil {
		t.Fatalf("%s - SetState: %v", urlStateTestPrefix, err)
	}

	got, ok := State[stockFilter](values, "filter")
	if !ok {
		t.Fatalf("%s - State returned ok=false", urlStateTestPrefix)
	}
	if got.Search != want.Search || got.Page != want.Page || len(got.WarehouseID) != 2 {
		t.Errorf("%s - State = %+v, want %+v", urlStateTestPrefix, got, want)
	}
}

func TestState_SurvivesQueryString(t *testing.T) {
	values := url.Values{}
	if err := SetState(values, "filter", stockFilter{Search: "a&b=c?"}); err != nil {
		t.Fatalf("%s - SetState: %v", urlStateTestPrefix, err)
	}
	parsed, err := url.ParseQuery(values.Encode())
	if err != nil {
		t.Fatalf("%s - ParseQuery: %v", urlStateTestPrefix, err)
	}
	got, ok := State[stockFilter](parsed, "filter")
	if !ok || got.Search != "a&b=c?" {
		t.Errorf("%s - State = %+v ok=%v", urlStateTestPrefix, got, ok)
	}
}

func TestState_MissingOrInvalid(t *testing.T) {
	values := url.Values{"filter": {"%%%not-base64"}}
	if _, ok := State[stockFilter](values, "filter"); ok {
		t.Errorf("%s - expected ok=false for invalid token", urlStateTestPrefix)
	}
	if _, ok := State[stockFilter](values, "absent"); ok {
		t.Errorf("%s - expected ok=false for absent key", urlStateTestPrefix)
	}
}

func TestSetState_NilRemovesKey(t *testing.T) {
	values := url.Values{"filter": {"x"}}
	if err := SetState(values, "filter", nil); err != nil {
		t.Fatalf("%s - SetState: %v", urlStateTestPrefix, err)
	}
	if values.Has("filter") {
		t.Errorf("%s - expected filter to be removed", urlStateTestPrefix)
	}
}
