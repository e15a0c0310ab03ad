// Package mockapi is a development backend that speaks the inventory API's
// envelope contract for /Brand and /CurrentStock.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kenchiwar/fe-invetory/pkg/apiversion"
	"github.com/kenchiwar/fe-invetory/pkg/dispatcher"
	"github.com/kenchiwar/fe-invetory/pkg/inventory"
	"github.com/kenchiwar/fe-invetory/pkg/transport"
)

const logPrefix = "mockapi:server"

const subjectKey = "subject"

// Options configures a Server.
type Options struct {
	// TokenSecret, when set, requires a bearer token signed with it.
	TokenSecret string
	// APIVersion is reported in the X-API-Version header when set.
	APIVersion string
	// CacheMaxAge adds Cache-Control: max-age to list responses when positive.
	CacheMaxAge time.Duration
	// Seed loads a few sample rows.
	Seed bool
	Now  func() time.Time
}

// Server holds the in-memory tables.
type Server struct {
	opts   Options
	brands *resource[inventory.Brand]
	stocks *resource[inventory.CurrentStock]
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts: opts,
		brands: newResource(
			func(b inventory.Brand) int64 { return b.ID },
			map[string]field[inventory.Brand]{
				"id":        numField(func(b inventory.Brand) float64 { return float64(b.ID) }),
				"brandCode": strField(func(b inventory.Brand) string { return b.BrandCode }),
				"brandName": strField(func(b inventory.Brand) string { return b.BrandName }),
			},
			func(b inventory.Brand) []string { return []string{b.BrandCode, b.BrandName} },
		),
		stocks: newResource(
			func(s inventory.CurrentStock) int64 { return s.ID },
			map[string]field[inventory.CurrentStock]{
				"id":          numField(func(s inventory.CurrentStock) float64 { return float64(s.ID) }),
				"productID":   numField(func(s inventory.CurrentStock) float64 { return float64(s.ProductID) }),
				"uoMID":       numField(func(s inventory.CurrentStock) float64 { return float64(s.UoMID) }),
				"quantity":    numField(func(s inventory.CurrentStock) float64 { return s.Quantity }),
				"warehouseID": numField(func(s inventory.CurrentStock) float64 { return float64(s.WarehouseID) }),
			},
			func(s inventory.CurrentStock) []string {
				return []string{strconv.FormatInt(s.ProductID, 10), strconv.FormatInt(s.WarehouseID, 10)}
			},
		),
	}
	if opts.Seed {
		s.seed()
	}
	return s
}

// Handler returns the gin engine serving the API.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.versionHeader())
	if s.opts.TokenSecret != "" {
		r.Use(s.requireToken())
	}

	r.GET("/Brand", s.listBrands)
	r.GET("/Brand/:id", s.getBrand)
	r.POST("/Brand/save", s.saveBrand)
	r.DELETE("/Brand", s.deleteBrand)

	r.GET("/CurrentStock", s.listStocks)
	r.GET("/CurrentStock/:id", s.getStock)
	r.POST("/CurrentStock/save", s.saveStock)
	r.DELETE("/CurrentStock", s.deleteStock)

	r.NoRoute(func(c *gin.Context) {
		respond(c, http.StatusNotFound, "Not found", nil)
	})
	return r
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dispatcher.NewEnvelope(strconv.Itoa(status), message, data))
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(transport.RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(transport.RequestIDHeader, rid)
		c.Next()
	}
}

func (s *Server) versionHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.APIVersion != "" {
			c.Header(apiversion.Header, s.opts.APIVersion)
		}
		c.Next()
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dispatcher.NewEnvelope[any]("401", "missing bearer token", nil))
			return
		}
		sub, err := transport.VerifyToken(s.opts.TokenSecret, raw)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Rejected token: %v", logPrefix, err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dispatcher.NewEnvelope[any]("401", "invalid bearer token", nil))
			return
		}
		c.Set(subjectKey, sub)
		c.Next()
	}
}

// parseListQuery reads sortBy/sortDirection (comma lists), search, skip and take.
func parseListQuery(c *gin.Context) (listQuery, error) {
	q := listQuery{search: c.Query("search")}
	if by := c.Query("sortBy"); by != "" {
		fields := strings.Split(by, ",")
		dirs := strings.Split(c.Query("sortDirection"), ",")
		for i, f := range fields {
			key := sortKey{field: strings.TrimSpace(f)}
			if i < len(dirs) {
				key.desc = strings.EqualFold(strings.TrimSpace(dirs[i]), "desc")
			}
			q.sorts = append(q.sorts, key)
		}
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"skip", &q.skip}, {"take", &q.take}} {
		if v := c.Query(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return q, fmt.Errorf("%s must be a non-negative integer", p.name)
			}
			*p.dst = n
		}
	}
	return q, nil
}

func (s *Server) cacheHeader(c *gin.Context) {
	if s.opts.CacheMaxAge > 0 {
		c.Header("Cache-Control", fmt.Sprintf("max-age=%d", int(s.opts.CacheMaxAge.Seconds())))
	}
}

// decodeBody reads a save payload into dst, unwrapping a {user, client, data}
// wrapper when present. It returns the wrapper's user, if any.
func decodeBody(c *gin.Context, dst any) (string, error) {
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		return "", err
	}
	var wrapped struct {
		User   string          `json:"user"`
		Client *string         `json:"client"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Client != nil && len(wrapped.Data) > 0 {
		return wrapped.User, json.Unmarshal(wrapped.Data, dst)
	}
	return "", json.Unmarshal(raw, dst)
}

// actor names who performed a mutation: the wrapper user, then the token subject.
func actor(c *gin.Context, user string) string {
	if user != "" {
		return user
	}
	if sub := c.GetString(subjectKey); sub != "" {
		return sub
	}
	return "system"
}

func idParam(c *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}

func (s *Server) stamp(existing *inventory.Audit, who string) inventory.Audit {
	now := s.opts.Now().UTC().Format(time.RFC3339)
	if existing == nil {
		return inventory.Audit{RowPointer: uuid.NewString(), CreatedBy: who, CreatedDate: now, UpdatedBy: who, UpdatedDate: now}
	}
	a := *existing
	a.UpdatedBy = who
	a.UpdatedDate = now
	return a
}

func (s *Server) seed() {
	for _, b := range []inventory.BrandDto{
		{BrandCode: "ACME", BrandName: "Acme Corporation"},
		{BrandCode: "GLBX", BrandName: "Globex"},
		{BrandCode: "INIT", BrandName: "Initech"},
	} {
		s.brands.upsert(nil, func(id int64, _ *inventory.Brand) inventory.Brand {
			return inventory.Brand{ID: id, BrandCode: b.BrandCode, BrandName: b.BrandName, Audit: s.stamp(nil, "seed")}
		})
	}
	bin := int64(3)
	for _, d := range []inventory.CurrentStockDto{
		{ProductID: 100, UoMID: 1, Quantity: 25, WarehouseID: 1},
		{ProductID: 101, UoMID: 2, Quantity: 4.5, WarehouseID: 1, StorageBinID: &bin},
		{ProductID: 102, UoMID: 1, Quantity: 0, WarehouseID: 2},
	} {
		s.stocks.upsert(nil, func(id int64, _ *inventory.CurrentStock) inventory.CurrentStock {
			return stockFromDto(id, d, s.stamp(nil, "seed"))
		})
	}
	slog.Info(fmt.Sprintf("%s - Seeded %d brands and %d stock records", logPrefix, s.brands.count(), s.stocks.count()))
}
