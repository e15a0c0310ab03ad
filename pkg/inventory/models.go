// Package inventory holds the console's concrete entity services.
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Audit carries the server-assigned bookkeeping fields. Dates are kept as the
// backend sends them.
type Audit struct {
	RowPointer  string `json:"rowPointer"`
	CreatedBy   string `json:"createdBy"`
	CreatedDate string `json:"createdDate"`
	UpdatedBy   string `json:"updatedBy"`
	UpdatedDate string `json:"updatedDate"`
}

type Brand struct {
	ID        int64  `json:"id"`
	BrandCode string `json:"brandCode"`
	BrandName string `json:"brandName"`
	Audit
}

func (b Brand) GetID() int64 { return b.ID }

// BrandDto is the save payload. ID is set for updates.
type BrandDto struct {
	ID        *int64 `json:"id,omitempty"`
	BrandCode string `json:"brandCode"`
	BrandName string `json:"brandName"`
}

// Validate reports missing required fields.
func (d BrandDto) Validate() error {
	var errs []error
	if strings.TrimSpace(d.BrandCode) == "" {
		errs = append(errs, &FieldError{Field: "brandCode", Message: "Please enter brand code"})
	}
	if strings.TrimSpace(d.BrandName) == "" {
		errs = append(errs, &FieldError{Field: "brandName", Message: "Please enter brand name"})
	}
	return errors.Join(errs...)
}

type CurrentStock struct {
	ID               int64   `json:"id"`
	ProductID        int64   `json:"productID"`
	ProductVariantID *int64  `json:"productVariantID"`
	UoMID            int64   `json:"uoMID"`
	Quantity         float64 `json:"quantity"`
	WarehouseID      int64   `json:"warehouseID"`
	StorageBinID     *int64  `json:"storageBinID"`
	Audit
}

func (s CurrentStock) GetID() int64 { return s.ID }

// CurrentStockDto is the save payload. ID is set for updates.
type CurrentStockDto struct {
	ID               *int64  `json:"id,omitempty"`
	ProductID        int64   `json:"productID"`
	ProductVariantID *int64  `json:"productVariantID"`
	UoMID            int64   `json:"uoMID"`
	Quantity         float64 `json:"quantity"`
	WarehouseID      int64   `json:"warehouseID"`
	StorageBinID     *int64  `json:"storageBinID"`
}

// Validate reports missing required fields. Ids must be positive.
func (d CurrentStockDto) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		label string
		value int64
	}{
		{"productID", "Product ID", d.ProductID},
		{"uoMID", "UoM ID", d.UoMID},
		{"warehouseID", "Warehouse ID", d.WarehouseID},
	} {
		if f.value <= 0 {
			errs = append(errs, &FieldError{Field: f.name, Message: "Please enter " + f.label})
		}
	}
	if d.Quantity < 0 {
		errs = append(errs, &FieldError{Field: "quantity", Message: "Quantity cannot be negative"})
	}
	return errors.Join(errs...)
}

// FieldError is a validation failure of one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
