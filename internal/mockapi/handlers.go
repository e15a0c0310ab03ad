package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kenchiwar/fe-invetory/pkg/inventory"
)

func (s *Server) listBrands(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	s.cacheHeader(c)
	respond(c, http.StatusOK, "OK", s.brands.list(q))
}

func (s *Server) getBrand(c *gin.Context) {
	id, ok := idParam(c, c.Param("id"))
	if !ok {
		return
	}
	b, found := s.brands.get(id)
	if !found {
		respond(c, http.StatusNotFound, "Brand not found", nil)
		return
	}
	respond(c, http.StatusOK, "OK", b)
}

func (s *Server) saveBrand(c *gin.Context) {
	var dto inventory.BrandDto
	user, err := decodeBody(c, &dto)
	if err != nil {
		respond(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	if err := dto.Validate(); err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	who := actor(c, user)
	saved, ok := s.brands.upsert(dto.ID, func(id int64, existing *inventory.Brand) inventory.Brand {
		var audit *inventory.Audit
		if existing != nil {
			audit = &existing.Audit
		}
		return inventory.Brand{ID: id, BrandCode: dto.BrandCode, BrandName: dto.BrandName, Audit: s.stamp(audit, who)}
	})
	if !ok {
		respond(c, http.StatusNotFound, "Brand not found", nil)
		return
	}
	respond(c, http.StatusOK, "Saved", saved)
}

func (s *Server) deleteBrand(c *gin.Context) {
	id, ok := idParam(c, c.Query("id"))
	if !ok {
		return
	}
	if !s.brands.delete(id) {
		respond(c, http.StatusNotFound, "Brand not found", nil)
		return
	}
	respond(c, http.StatusOK, "Deleted", nil)
}

func (s *Server) listStocks(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	s.cacheHeader(c)
	respond(c, http.StatusOK, "OK", s.stocks.list(q))
}

func (s *Server) getStock(c *gin.Context) {
	id, ok := idParam(c, c.Param("id"))
	if !ok {
		return
	}
	st, found := s.stocks.get(id)
	if !found {
		respond(c, http.StatusNotFound, "Current stock not found", nil)
		return
	}
	respond(c, http.StatusOK, "OK", st)
}

func (s *Server) saveStock(c *gin.Context) {
	var dto inventory.CurrentStockDto
	user, err := decodeBody(c, &dto)
	if err != nil {
		respond(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}
	if err := dto.Validate(); err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	who := actor(c, user)
	saved, ok := s.stocks.upsert(dto.ID, func(id int64, existing *inventory.CurrentStock) inventory.CurrentStock {
		var audit *inventory.Audit
		if existing != nil {
			audit = &existing.Audit
		}
		return stockFromDto(id, dto, s.stamp(audit, who))
	})
	if !ok {
		respond(c, http.StatusNotFound, "Current stock not found", nil)
		return
	}
	respond(c, http.StatusOK, "Saved", saved)
}

func (s *Server) deleteStock(c *gin.Context) {
	id, ok := idParam(c, c.Query("id"))
	if !ok {
		return
	}
	if !s.stocks.delete(id) {
		respond(c, http.StatusNotFound, "Current stock not found", nil)
		return
	}
	respond(c, http.StatusOK, "Deleted", nil)
}

func stockFromDto(id int64, d inventory.CurrentStockDto, audit inventory.Audit) inventory.CurrentStock {
	return inventory.CurrentStock{
		ID:               id,
		ProductID:        d.ProductID,
		ProductVariantID: d.ProductVariantID,
		UoMID:            d.UoMID,
		Quantity:         d.Quantity,
		WarehouseID:      d.WarehouseID,
		StorageBinID:     d.StorageBinID,
		Audit:            audit,
	}
}
