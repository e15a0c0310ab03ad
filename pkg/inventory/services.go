package inventory

import (
	"context"

	"github.com/kenchiwar/fe-invetory/pkg/dispatcher"
	"github.com/kenchiwar/fe-invetory/pkg/service"
)

// Collection endpoints.
const (
	BrandEndpoint        = "/Brand"
	CurrentStockEndpoint = "/CurrentStock"
)

// Brands is the brand service.
type Brands struct {
	*service.Service[Brand, BrandDto]
}

// NewBrands binds the brand service to d.
func NewBrands(d *dispatcher.Dispatcher, opts ...service.Option) *Brands {
	return &Brands{service.New[Brand, BrandDto](BrandEndpoint, d, opts...)}
}

// AllCached lists brands through the response cache.
func (b *Brands) AllCached(ctx context.Context) ([]Brand, error) {
	return b.GetAll(ctx, dispatcher.Cached())
}

// SaveValid validates dto before saving it.
func (b *Brands) SaveValid(ctx context.Context, dto BrandDto) (Brand, error) {
	if err := dto.Validate(); err != nil {
		return Brand{}, err
	}
	return b.Save(ctx, dto)
}

// CurrentStocks is the current stock service.
type CurrentStocks struct {
	*service.Service[CurrentStock, CurrentStockDto]
}

// NewCurrentStocks binds the current stock service to d.
func NewCurrentStocks(d *dispatcher.Dispatcher, opts ...service.Option) *CurrentStocks {
	return &CurrentStocks{service.New[CurrentStock, CurrentStockDto](CurrentStockEndpoint, d, opts...)}
}

// AllCached lists stock records through the response cache.
func (s *CurrentStocks) AllCached(ctx context.Context) ([]CurrentStock, error) {
	return s.GetAll(ctx, dispatcher.Cached())
}

// SaveValid validates dto before saving it.
func (s *CurrentStocks) SaveValid(ctx context.Context, dto CurrentStockDto) (CurrentStock, error) {
	if err := dto.Validate(); err != nil {
		return CurrentStock{}, err
	}
	return s.Save(ctx, dto)
}
