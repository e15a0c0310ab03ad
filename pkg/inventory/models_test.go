package inventory

import (
	"encoding/json"
	"errors"
	"testing"
)

const modelsTestPrefix = "inventory:models_test"

func fieldsOf(err error) []string {
	var out []string
	if err == nil {
		return out
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var fe *FieldError
			if errors.As(e, &fe) {
				out = append(out, fe.Field)
			}
		}
	}
	return out
}

func TestBrandDto_Validate(t *testing.T) {
	tests := []struct {
		name string
		dto  BrandDto
		want []string
	}{
		{"valid", BrandDto{BrandCode: "AC", BrandName: "Acme"}, nil},
		{"missing code", BrandDto{BrandName: "Acme"}, []string{"brandCode"}},
		{"blank both", BrandDto{BrandCode: " ", BrandName: ""}, []string{"brandCode", "brandName"}},
	}
	for _, tt := range tests {
		got := fieldsOf(tt.dto.Validate())
		if len(got) != len(tt.want) {
			t.Errorf("%s - %s: fields = %v, want %v", modelsTestPrefix, tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s - %s: fields = %v, want %v", modelsTestPrefix, tt.name, got, tt.want)
			}
		}
	}
}

func TestCurrentStockDto_Validate(t *testing.T) {
	valid := CurrentStockDto{ProductID: 1, UoMID: 2, Quantity: 0, WarehouseID: 3}
	if err := valid.Validate(); err != nil {
		t.Errorf("%s - valid dto: %v", modelsTestPrefix, err)
	}

	bad := CurrentStockDto{Quantity: -1}
	got := fieldsOf(bad.Validate())
	want := []string{"productID", "uoMID", "warehouseID", "quantity"}
	if len(got) != len(want) {
		t.Fatalf("%s - fields = %v, want %v", modelsTestPrefix, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s - field %d = %q, want %q", modelsTestPrefix, i, got[i], want[i])
		}
	}
}

func TestCurrentStock_JSONShape(t *testing.T) {
	raw := `{"id":4,"productID":10,"productVariantID":null,"uoMID":2,"quantity":12.5,
		"warehouseID":1,"storageBinID":7,"rowPointer":"rp","createdBy":"admin"}`
	var s CurrentStock
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("%s - unmarshal: %v", modelsTestPrefix, err)
	}
	if s.GetID() != 4 || s.ProductVariantID != nil || s.StorageBinID == nil || *s.StorageBinID != 7 {
		t.Errorf("%s - stock = %+v", modelsTestPrefix, s)
	}
	if s.RowPointer != "rp" || s.CreatedBy != "admin" || s.Quantity != 12.5 {
		t.Errorf("%s - audit fields = %+v", modelsTestPrefix, s.Audit)
	}

	out, err := json.Marshal(CurrentStockDto{ProductID: 1, UoMID: 1, WarehouseID: 1})
	if err != nil {
		t.Fatalf("%s - marshal: %v", modelsTestPrefix, err)
	}
	var m map[string]any
	_ = json.Unmarshal(out, &m)
	if _, has := m["id"]; has {
		t.Errorf("%s - new dto must omit id: %s", modelsTestPrefix, out)
	}
	if v, has := m["storageBinID"]; !has || v != nil {
		t.Errorf("%s - storageBinID should be sent as null: %s", modelsTestPrefix, out)
	}
}
