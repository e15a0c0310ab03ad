package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kenchiwar/fe-invetory/pkg/dispatcher"
	"github.com/kenchiwar/fe-invetory/pkg/inventory"
	"github.com/kenchiwar/fe-invetory/pkg/query"
	"github.com/kenchiwar/fe-invetory/pkg/transport"
)

const serverLogPrefix = "console:server"

// PageSize is the number of rows per list page.
const PageSize = query.DefaultTake

// MaxPage bounds the page index read from a request.
const MaxPage = 100000

// stateParam carries the encoded list state of a page.
const stateParam = "state"

// listState is the shareable filter, sort and page of a list page.
type listState struct {
	Search string `json:"s,omitempty"`
	SortBy string `json:"f,omitempty"`
	Desc   bool   `json:"d,omitempty"`
	Page   int    `json:"p,omitempty"`
}

var (
	brandSortFields = []string{"id", "brandCode", "brandName"}
	stockSortFields = []string{"id", "productID", "uoMID", "quantity", "warehouseID"}
)

// NewHandler returns the console's HTTP routes.
func NewHandler(a *App, healthTimeout time.Duration) *echo.Echo {
	if healthTimeout <= 0 {
		healthTimeout = 5 * time.Second
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer()
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	e.GET("/", a.handleHome)
	e.GET("/brands", a.handleBrands)
	e.POST("/brands", a.handleSaveBrand)
	e.POST("/brands/:id/delete", a.handleDeleteBrand)
	e.GET("/stock", a.handleStock)
	e.POST("/stock", a.handleSaveStock)
	e.POST("/stock/:id/delete", a.handleDeleteStock)
	e.POST("/cache/clear", a.handleClearCache)

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		h := a.Health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, h)
	})
	e.GET("/ready", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	return e
}

func (a *App) handleHome(c echo.Context) error {
	return c.Render(http.StatusOK, "home", map[string]any{
		"Cache":   a.cacheLabel(),
		"Message": c.QueryParam("msg"),
	})
}

type listPage[T any] struct {
	Title    string
	Path     string
	Rows     []T
	State    listState
	Fields   []string
	PrevURL  string
	NextURL  string
	SortURLs map[string]string
	Error    string
}

func (a *App) handleBrands(c echo.Context) error {
	st := readListState(c.QueryParams(), brandSortFields)
	rows, err := a.Brands.Query(c.Request().Context(), st.builder(), dispatcher.Cached())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "brands", newListPage("Brands", "/brands", rows, st, brandSortFields))
}

func (a *App) handleStock(c echo.Context) error {
	st := readListState(c.QueryParams(), stockSortFields)
	rows, err := a.Stocks.Query(c.Request().Context(), st.builder(), dispatcher.Cached())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "stock", newListPage("Current stock", "/stock", rows, st, stockSortFields))
}

func (a *App) handleSaveBrand(c echo.Context) error {
	dto := inventory.BrandDto{
		BrandCode: strings.TrimSpace(c.FormValue("brandCode")),
		BrandName: strings.TrimSpace(c.FormValue("brandName")),
	}
	id, err := optionalID(c.FormValue("id"))
	if err != nil {
		return err
	}
	dto.ID = id
	if _, err := a.Brands.SaveValid(c.Request().Context(), dto); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/brands")
}

func (a *App) handleDeleteBrand(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := a.Brands.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/brands")
}

func (a *App) handleSaveStock(c echo.Context) error {
	var dto inventory.CurrentStockDto
	var err error
	if dto.ID, err = optionalID(c.FormValue("id")); err != nil {
		return err
	}
	if dto.ProductVariantID, err = optionalID(c.FormValue("productVariantID")); err != nil {
		return err
	}
	if dto.StorageBinID, err = optionalID(c.FormValue("storageBinID")); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"productID", &dto.ProductID},
		{"uoMID", &dto.UoMID},
		{"warehouseID", &dto.WarehouseID},
	} {
		if v := strings.TrimSpace(c.FormValue(f.name)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, f.name+" must be a number")
			}
			*f.dst = n
		}
	}
	if v := strings.TrimSpace(c.FormValue("quantity")); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a number")
		}
		dto.Quantity = q
	}
	if _, err := a.Stocks.SaveValid(c.Request().Context(), dto); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/stock")
}

func (a *App) handleDeleteStock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := a.Stocks.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/stock")
}

func (a *App) handleClearCache(c echo.Context) error {
	n, err := a.ClearCache(c.Request().Context())
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Cleared %d cached responses", serverLogPrefix, n))
	return c.Redirect(http.StatusSeeOther, "/?msg="+url.QueryEscape(fmt.Sprintf("Cleared %d cached responses", n)))
}

// readListState reads the encoded state parameter, then lets the plain
// search, sortBy, dir and page parameters override it.
func readListState(v url.Values, fields []string) listState {
	st, _ := query.State[listState](v, stateParam)
	if s := v.Get("search"); s != "" {
		st.Search = s
	}
	if s := v.Get("sortBy"); s != "" {
		st.SortBy = s
	}
	if s := v.Get("dir"); s != "" {
		st.Desc = strings.EqualFold(s, string(query.Desc))
	}
	if s := v.Get("page"); s != "" {
		if p, err := strconv.Atoi(s); err == nil {
			st.Page = p
		}
	}
	if !contains(fields, st.SortBy) {
		st.SortBy = "id"
	}
	st.Page = min(max(st.Page, 0), MaxPage)
	st.Search = strings.TrimSpace(st.Search)
	return st
}

func (st listState) builder() *query.Builder {
	dir := query.Asc
	if st.Desc {
		dir = query.Desc
	}
	return query.New().
		SortBy(st.SortBy, dir).
		Search(st.Search).
		Paginate(st.Page*PageSize, PageSize)
}

// link returns path with st encoded in the state parameter.
func (st listState) link(path string) string {
	v := url.Values{}
	if err := query.SetState(v, stateParam, st); err != nil {
		return path
	}
	return path + "?" + v.Encode()
}

func newListPage[T any](title, path string, rows []T, st listState, fields []string) listPage[T] {
	p := listPage[T]{
		Title:    title,
		Path:     path,
		Rows:     rows,
		State:    st,
		Fields:   fields,
		SortURLs: make(map[string]string, len(fields)),
	}
	if st.Page > 0 {
		prev := st
		prev.Page--
		p.PrevURL = prev.link(path)
	}
	if len(rows) >= PageSize {
		next := st
		next.Page++
		p.NextURL = next.link(path)
	}
	for _, f := range fields {
		s := st
		s.SortBy = f
		s.Page = 0
		s.Desc = st.SortBy == f && !st.Desc
		p.SortURLs[f] = s.link(path)
	}
	return p
}

func optionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id "+strconv.Quote(raw))
	}
	return &id, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// errorHandler maps validation and backend failures onto HTTP statuses and
// renders them as an error page.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error(fmt.Sprintf("%s - %s %s: %v", serverLogPrefix, c.Request().Method, c.Request().URL.Path, err))
	}
	if rerr := c.Render(status, "error", map[string]any{"Status": status, "Message": message}); rerr != nil {
		_ = c.String(status, message)
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	var fe *inventory.FieldError
	if errors.As(err, &fe) {
		return http.StatusBadRequest, err.Error()
	}
	var te *transport.Error
	if errors.As(err, &te) {
		switch te.Kind {
		case transport.KindServer:
			if te.StatusCode >= 400 && te.StatusCode < 500 {
				return te.StatusCode, te.Error()
			}
			return http.StatusBadGateway, te.Error()
		case transport.KindNoResponse:
			return http.StatusBadGateway, "inventory backend did not respond"
		}
	}
	if errors.Is(err, dispatcher.ErrNotEnvelope) {
		return http.StatusBadGateway, "inventory backend returned an unexpected response"
	}
	return http.StatusInternalServerError, "internal error"
}
