package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/export"
	"github.com/innbucks/dashboard/internal/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrNotReady is returned until the first snapshot has been built.
var ErrNotReady = errors.New("snapshot not ready")

// ErrBuildRunning is returned when a rebuild is requested while one is
// already in progress.
var ErrBuildRunning = errors.New("snapshot build already running")

// BuildFunc produces a fresh snapshot.
type BuildFunc func() (*engine.Snapshot, error)

type Handler struct {
	snap     atomic.Pointer[engine.Snapshot]
	build    BuildFunc
	building sync.Mutex
	csv      *export.Writer
	log      *zap.Logger
}

// NewHandler starts with no snapshot; every data route answers 503 until
// SetSnapshot is called.
func NewHandler(build BuildFunc, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{build: build, csv: export.NewWriter(), log: log}
}

func (h *Handler) SetSnapshot(s *engine.Snapshot) {
	h.snap.Store(s)
}

func (h *Handler) Snapshot() (*engine.Snapshot, error) {
	s := h.snap.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// Rebuild runs the build function and swaps in the result. Concurrent
// calls fail fast with ErrBuildRunning.
func (h *Handler) Rebuild() (*engine.Snapshot, error) {
	if h.build == nil {
		return nil, errors.New("no build function configured")
	}
	if !h.building.TryLock() {
		return nil, ErrBuildRunning
	}
	defer h.building.Unlock()

	s, err := h.build()
	if err != nil {
		return nil, err
	}
	h.SetSnapshot(s)
	return s, nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.POST("/regenerate", h.Regenerate)

	read := api.Group("", h.requireSnapshot, h.etag)
	read.GET("/snapshot", h.GetSnapshot)
	read.GET("/kpis", h.GetKPIs)
	read.GET("/dashboard", h.GetDashboard)
	read.GET("/breakdowns/:dimension", h.GetBreakdown)
	read.GET("/series/daily", h.GetDailySeries)
	read.GET("/volume/by-type", h.GetVolumeByType)
	read.GET("/filters", h.GetFilterOptions)
	read.GET("/customers", h.GetCustomers)
	read.GET("/accounts", h.GetAccounts)
	read.GET("/accounts/summary", h.GetAccountSummary)
	read.GET("/transactions", h.GetTransactions)
	read.GET("/transactions/recent", h.GetRecentTransactions)
	read.GET("/agents", h.GetAgents)
	read.GET("/export/:table", h.Export)
}

// --- HELPERS ---

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

type page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func paginate[T any](c echo.Context, rows []T, defaultLimit int) error {
	total := len(rows)
	limit, offset := getPaginationParams(c, defaultLimit)

	out := page[T]{Data: []T{}, Total: total, Limit: limit, Offset: offset}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		out.Data = rows[offset:end]
	}
	return c.JSON(http.StatusOK, out)
}

// parseFilter reads the filter query params. Dates are YYYY-MM-DD and the
// "to" day is included.
func parseFilter(c echo.Context) (engine.Filter, error) {
	f := engine.Filter{
		Region:          c.QueryParam("region"),
		Branch:          c.QueryParam("branch"),
		CustomerType:    c.QueryParam("customer_type"),
		KYCStatus:       c.QueryParam("kyc_status"),
		TransactionType: c.QueryParam("transaction_type"),
		Channel:         c.QueryParam("channel"),
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		}
		f.To = t.AddDate(0, 0, 1)
	}
	return f, nil
}

func (h *Handler) view(c echo.Context) (*engine.Dataset, *models.DashboardData, error) {
	s, err := h.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	f, err := parseFilter(c)
	if err != nil {
		return nil, nil, err
	}
	ds, data := s.View(f)
	return ds, data, nil
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	status := "ready"
	if h.snap.Load() == nil {
		status = "loading"
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) Regenerate(c echo.Context) error {
	if h.build == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "regeneration disabled")
	}
	s, err := h.Rebuild()
	switch {
	case errors.Is(err, ErrBuildRunning):
		return echo.NewHTTPError(http.StatusConflict, "regeneration already running")
	case errors.Is(err, engine.ErrInvalidConfig):
		h.log.Error("regenerate failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		h.log.Error("regenerate failed", zap.Error(err))
		return err
	}
	h.log.Info("snapshot regenerated", zap.String("snapshot_id", s.ID), zap.String("fingerprint", s.Fingerprint))
	return c.JSON(http.StatusCreated, s.Meta())
}

func (h *Handler) GetSnapshot(c echo.Context) error {
	s, err := h.Snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Meta())
}

func (h *Handler) GetKPIs(c echo.Context) error {
	_, data, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"kpis":       data.KPIs,
		"decoration": data.Decoration,
	})
}

func (h *Handler) GetDashboard(c echo.Context) error {
	_, data, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetBreakdown(c echo.Context) error {
	_, data, err := h.view(c)
	if err != nil {
		return err
	}
	items, ok := data.Breakdowns.Lookup(c.Param("dimension"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown dimension")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDailySeries(c echo.Context) error {
	_, data, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data.Daily)
}

func (h *Handler) GetVolumeByType(c echo.Context) error {
	_, data, err := h.view(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data.VolumeByType)
}

func (h *Handler) GetFilterOptions(c echo.Context) error {
	s, err := h.Snapshot()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Dataset.FilterOptions())
}

func (h *Handler) GetCustomers(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	return paginate(c, ds.Customers, 100)
}

func (h *Handler) GetAccounts(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	return paginate(c, ds.Accounts, 100)
}

func (h *Handler) GetAccountSummary(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	summary := ds.AccountSummary()
	rows := summary.Rows
	limit, offset := getPaginationParams(c, 100)
	if offset >= len(rows) {
		summary.Rows = []models.AccountSummaryRow{}
	} else {
		summary.Rows = rows[offset:min(offset+limit, len(rows))]
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetTransactions(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	return paginate(c, ds.Transactions, 100)
}

// returns the newest 100 transactions unless limit says otherwise
func (h *Handler) GetRecentTransactions(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	limit, _ := getPaginationParams(c, 100)
	return c.JSON(http.StatusOK, ds.RecentTransactions(limit))
}

func (h *Handler) GetAgents(c echo.Context) error {
	ds, _, err := h.view(c)
	if err != nil {
		return err
	}
	return paginate(c, ds.Agents, 100)
}

// Export renders the whole CSV before answering so a failed write still
// gets a proper error status.
func (h *Handler) Export(c echo.Context) error {
	ds, data, err := h.view(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.csv.Write(&buf, c.Param("table"), ds, data); err != nil {
		if errors.Is(err, export.ErrUnknownTable) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown table")
		}
		return fmt.Errorf("export %s: %w", c.Param("table"), err)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
