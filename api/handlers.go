/*
handlers.go - HTTP API handlers for the caddie ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the cache and the pure aggregation
  functions.

ENDPOINTS:
  Loops:
    GET    /api/loops              List loops (optional ?range=)
    POST   /api/loops              Create loop
    PUT    /api/loops/{id}         Update loop
    DELETE /api/loops/{id}         Delete loop

  Expenses:
    GET    /api/expenses           List expenses (optional ?range=)
    POST   /api/expenses           Create expense
    PUT    /api/expenses/{id}      Update expense
    DELETE /api/expenses/{id}      Delete expense

  Reports:
    GET    /api/summary?range=YTD             Income/expense summary
    GET    /api/insights?range=YTD&loopType=  Faceted time/income insights

  Misc:
    GET    /api/ranges             Range-key vocabulary for the UI selector
    GET    /api/settings           Read settings
    PUT    /api/settings           Update settings
    POST   /api/refresh            Re-pull records from the store

ERROR HANDLING:
  - 400: Body fails to decode or validate, unknown range key
  - 404: Delete/update of a record the store does not have
  - 502: Retryable store failure (cache keeps last-known-good; the client
         is told explicitly so a failed save can be retried)
  - 500: Non-retryable internal failure

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/fairway/loopledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Cache *ledger.Cache

	log      *logrus.Logger
	validate *validator.Validate

	// now anchors range resolution; overridden in tests for deterministic
	// window boundaries.
	now func() time.Time
}

// NewHandler creates a new handler over the given cache.
func NewHandler(cache *ledger.Cache, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Cache:    cache,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// resolveRange parses the ?range= query parameter, defaulting to ALL.
func (h *Handler) resolveRange(r *http.Request) (ledger.RangeKey, ledger.DateRange, error) {
	key := ledger.RangeKey(r.URL.Query().Get("range"))
	if key == "" {
		key = ledger.RangeAll
	}
	dr, err := ledger.Resolve(key, h.now())
	return key, dr, err
}

// =============================================================================
// LOOP ENDPOINTS
// =============================================================================

// ListLoops returns cached loops, optionally filtered to a range.
// GET /api/loops?range=30D
func (h *Handler) ListLoops(w http.ResponseWriter, r *http.Request) {
	_, dr, err := h.resolveRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown range key", err)
		return
	}
	loops := ledger.FilterLoops(h.Cache.Loops(), dr)
	writeJSON(w, http.StatusOK, toLoopDTOs(loops))
}

// CreateLoop validates and saves a new loop.
// POST /api/loops
func (h *Handler) CreateLoop(w http.ResponseWriter, r *http.Request) {
	var req LoopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	loop, err := h.Cache.SaveLoop(r.Context(), req.Raw())
	if err != nil {
		h.log.WithError(err).Error("loop create failed")
		writeError(w, storeStatus(err), "Failed to save loop", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoopDTO(loop))
}

// UpdateLoop replaces a loop by id.
// PUT /api/loops/{id}
func (h *Handler) UpdateLoop(w http.ResponseWriter, r *http.Request) {
	var req LoopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	loop, err := h.Cache.SaveLoop(r.Context(), req.Raw())
	if err != nil {
		h.log.WithError(err).Error("loop update failed")
		writeError(w, storeStatus(err), "Failed to save loop", err)
		return
	}
	writeJSON(w, http.StatusOK, toLoopDTO(loop))
}

// DeleteLoop removes a loop by id.
// DELETE /api/loops/{id}
func (h *Handler) DeleteLoop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Cache.DeleteLoop(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Loop not found", nil)
			return
		}
		h.log.WithError(err).Error("loop delete failed")
		writeError(w, storeStatus(err), "Failed to delete loop", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPENSE ENDPOINTS
// =============================================================================

// ListExpenses returns cached expenses, optionally filtered to a range.
// GET /api/expenses?range=MTD
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	_, dr, err := h.resolveRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown range key", err)
		return
	}
	expenses := ledger.FilterExpenses(h.Cache.Expenses(), dr)
	writeJSON(w, http.StatusOK, toExpenseDTOs(expenses))
}

// CreateExpense validates and saves a new expense.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	expense, err := h.Cache.SaveExpense(r.Context(), req.Raw())
	if err != nil {
		h.log.WithError(err).Error("expense create failed")
		writeError(w, storeStatus(err), "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(expense))
}

// UpdateExpense replaces an expense by id.
// PUT /api/expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	expense, err := h.Cache.SaveExpense(r.Context(), req.Raw())
	if err != nil {
		h.log.WithError(err).Error("expense update failed")
		writeError(w, storeStatus(err), "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(expense))
}

// DeleteExpense removes an expense by id.
// DELETE /api/expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Cache.DeleteExpense(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Expense not found", nil)
			return
		}
		h.log.WithError(err).Error("expense delete failed")
		writeError(w, storeStatus(err), "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetSummary returns the income/expense summary for a range.
// GET /api/summary?range=YTD
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	key, dr, err := h.resolveRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown range key", err)
		return
	}

	income := ledger.Summarize(ledger.FilterLoops(h.Cache.Loops(), dr))
	expenses := ledger.SummarizeExpenses(ledger.FilterExpenses(h.Cache.Expenses(), dr))

	byCategory := make(map[string]float64, len(expenses.ByCategory))
	for cat, amount := range expenses.ByCategory {
		byCategory[cat] = money(amount)
	}

	net := income.TotalIncome.Sub(expenses.Total).Sub(income.MileageCost)
	writeJSON(w, http.StatusOK, SummaryDTO{
		Range:     string(key),
		LoopCount: income.LoopCount,

		BagFees:     money(income.BagFees),
		CashTips:    money(income.CashTips),
		DigitalTips: money(income.DigitalTips),
		PreGrats:    money(income.PreGrats),
		TotalIncome: money(income.TotalIncome),

		TipsPct:       income.TipsPct,
		BagFeePct:     income.BagFeePct,
		CashTipPct:    income.CashTipPct,
		DigitalTipPct: income.DigitalTipPct,
		PreGratPct:    income.PreGratPct,

		AvgEarningsPerLoop: income.AvgEarningsPerLoop.InexactFloat64(),

		MileageMiles: income.MileageMiles.InexactFloat64(),
		MileageCost:  money(income.MileageCost),

		ExpenseCount:      expenses.ExpenseCount,
		TotalExpenses:     money(expenses.Total),
		ExpenseByCategory: byCategory,

		Net: money(net),
	})
}

// GetInsights returns time and income metrics for one loop-type facet.
// GET /api/insights?range=30D&loopType=single
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	key, dr, err := h.resolveRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown range key", err)
		return
	}
	facet := r.URL.Query().Get("loopType")
	if facet == "" {
		facet = "all"
	}

	report := ledger.Insights(ledger.FilterLoops(h.Cache.Loops(), dr), facet)
	writeJSON(w, http.StatusOK, InsightsDTO{
		Range:    string(key),
		LoopType: facet,

		LoopCount:          report.LoopCount,
		TotalIncome:        money(report.TotalIncome),
		TipsPct:            report.TipsPct,
		AvgEarningsPerLoop: report.AvgEarningsPerLoop.InexactFloat64(),

		PerHourOverall: report.PerHourOverall.InexactFloat64(),
		PerHourOnBag:   report.PerHourOnBag.InexactFloat64(),

		AvgWaitMinutes: report.AvgWaitMinutes,
		AvgPaceMinutes: report.AvgPaceMinutes,
		AvgWait:        ledger.FormatDuration(report.AvgWaitMinutes),
		AvgPace:        ledger.FormatDuration(report.AvgPaceMinutes),
	})
}

// ListRanges returns the range-key vocabulary in display order so the UI
// range selector never hardcodes it.
// GET /api/ranges
func (h *Handler) ListRanges(w http.ResponseWriter, r *http.Request) {
	keys := make([]string, 0, len(ledger.RangeKeys))
	for _, k := range ledger.RangeKeys {
		keys = append(keys, string(k))
	}
	writeJSON(w, http.StatusOK, keys)
}

// =============================================================================
// SETTINGS & REFRESH
// =============================================================================

// GetSettings returns the cached settings record.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Cache.UserSettings()))
}

// UpdateSettings persists and caches the settings record.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	settings, err := h.Cache.SaveSettings(r.Context(), req.Raw())
	if err != nil {
		h.log.WithError(err).Error("settings save failed")
		writeError(w, storeStatus(err), "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// Refresh re-pulls all records from the store. On failure the cache keeps
// its previous contents and the client is told the refresh did not happen.
// POST /api/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Refresh(r.Context()); err != nil {
		h.log.WithError(err).Error("refresh failed, serving stale data")
		writeError(w, storeStatus(err), "Refresh failed, cached data unchanged", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// storeStatus maps a cache failure to an HTTP status: a retryable store
// outage is 502 so the client knows a retry may succeed, anything else 500.
func storeStatus(err error) int {
	if ledger.IsRetryable(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
