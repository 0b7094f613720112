package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairway/loopledger/ledger"
	"github.com/fairway/loopledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	cache := ledger.NewCache(mem, nil, "caddie-1", nil)

	h := NewHandler(cache, nil)
	// Pin "now" so range windows are deterministic.
	h.now = func() time.Time {
		return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)
	}

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createLoop(t *testing.T, srv *httptest.Server, req LoopRequest) LoopDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/loops", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[LoopDTO](t, resp)
}

// =============================================================================
// LOOP CRUD
// =============================================================================

func TestCreateLoop(t *testing.T) {
	srv, _ := newTestServer(t)

	dto := createLoop(t, srv, LoopRequest{
		Date: "2024-03-10", Course: "Pine Valley", LoopType: "Single",
		BagFee: 50, CashTip: 10,
	})

	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, 60.0, dto.Total)
}

func TestCreateLoop_ValidationFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	// Missing date and course
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/loops", LoopRequest{LoopType: "Single"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateLoop_ReplacesById(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createLoop(t, srv, LoopRequest{
		Date: "2024-03-10", Course: "Pine Valley", LoopType: "Single", BagFee: 50,
	})

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/loops/"+created.ID, LoopRequest{
		Date: "2024-03-10", Course: "Pine Valley", LoopType: "Single", BagFee: 75,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[LoopDTO](t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 75.0, updated.BagFee)

	listResp := doJSON(t, http.MethodGet, srv.URL+"/api/loops", nil)
	loops := decode[[]LoopDTO](t, listResp)
	assert.Len(t, loops, 1)
}

func TestDeleteLoop_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/loops/nope", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteLoop(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createLoop(t, srv, LoopRequest{
		Date: "2024-03-10", Course: "Pine Valley", LoopType: "Single", BagFee: 50,
	})

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/loops/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	listResp := doJSON(t, http.MethodGet, srv.URL+"/api/loops", nil)
	assert.Empty(t, decode[[]LoopDTO](t, listResp))
}

// =============================================================================
// REPORTS
// =============================================================================

func TestGetSummary_ScenarioOverAll(t *testing.T) {
	srv, _ := newTestServer(t)

	createLoop(t, srv, LoopRequest{Date: "2024-03-10", Course: "A", LoopType: "Single", BagFee: 50, CashTip: 10})
	createLoop(t, srv, LoopRequest{Date: "2024-03-09", Course: "B", LoopType: "Single", BagFee: 60, DigitalTip: 20})
	createLoop(t, srv, LoopRequest{Date: "2024-03-08", Course: "C", LoopType: "Double", BagFee: 40, PreGrat: 5})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/summary?range=ALL", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[SummaryDTO](t, resp)

	assert.Equal(t, 3, summary.LoopCount)
	assert.Equal(t, 185.0, summary.TotalIncome)
	assert.Equal(t, int64(19), summary.TipsPct)
	assert.InDelta(t, 61.67, summary.AvgEarningsPerLoop, 0.001)
}

func TestGetSummary_RangeFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	// Inside the 7D window (now pinned to 2024-03-10) and outside it.
	createLoop(t, srv, LoopRequest{Date: "2024-03-04", Course: "A", LoopType: "Single", BagFee: 50})
	createLoop(t, srv, LoopRequest{Date: "2024-03-03", Course: "B", LoopType: "Single", BagFee: 999})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/summary?range=7D", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[SummaryDTO](t, resp)

	assert.Equal(t, 1, summary.LoopCount)
	assert.Equal(t, 50.0, summary.TotalIncome)
}

func TestGetSummary_UnknownRange(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/summary?range=90D", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSummary_IncludesExpensesAndNet(t *testing.T) {
	srv, _ := newTestServer(t)

	createLoop(t, srv, LoopRequest{Date: "2024-03-10", Course: "A", LoopType: "Single", BagFee: 100})
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/expenses", ExpenseRequest{
		Date: "2024-03-10", Amount: 25, Category: "Meals",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	summaryResp := doJSON(t, http.MethodGet, srv.URL+"/api/summary?range=ALL", nil)
	summary := decode[SummaryDTO](t, summaryResp)

	assert.Equal(t, 25.0, summary.TotalExpenses)
	assert.Equal(t, 25.0, summary.ExpenseByCategory["Meals"])
	assert.Equal(t, 75.0, summary.Net)
}

func TestGetInsights_FacetAndDurations(t *testing.T) {
	srv, _ := newTestServer(t)

	createLoop(t, srv, LoopRequest{
		Date: "2024-03-10", Course: "A", LoopType: "Single", BagFee: 100,
		ReportTime: "07:00", TeeTime: "08:00", EndTime: "12:00",
	})
	createLoop(t, srv, LoopRequest{Date: "2024-03-10", Course: "B", LoopType: "Double", BagFee: 500})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/insights?range=ALL&loopType=single", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	insights := decode[InsightsDTO](t, resp)

	assert.Equal(t, 1, insights.LoopCount, "double loop filtered out")
	assert.Equal(t, 100.0, insights.TotalIncome)
	assert.Equal(t, "1h 0m", insights.AvgWait)
	assert.Equal(t, "4h 0m", insights.AvgPace)
	assert.Equal(t, 20.0, insights.PerHourOverall) // $100 over 5h
	assert.Equal(t, 25.0, insights.PerHourOnBag)   // $100 over 4h
}

func TestListRanges(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/ranges", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	keys := decode[[]string](t, resp)

	assert.Equal(t, []string{"7D", "14D", "30D", "MTD", "YTD", "ALL"}, keys)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	getResp := doJSON(t, http.MethodGet, srv.URL+"/api/settings", nil)
	initial := decode[SettingsDTO](t, getResp)
	assert.InDelta(t, 0.67, initial.MileageRate, 0.0001, "default rate before any save")

	putResp := doJSON(t, http.MethodPut, srv.URL+"/api/settings", SettingsRequest{
		MileageRate: 0.58, HomeAddress: "12 Fairway Dr", DefaultBagFeeSingle: 60,
	})
	require.Equal(t, http.StatusOK, putResp.StatusCode)
	saved := decode[SettingsDTO](t, putResp)
	assert.InDelta(t, 0.58, saved.MileageRate, 0.0001)
	assert.Equal(t, 60.0, saved.DefaultBagFeeSingle)
}

// brokenStore fails every loop write so handlers exercise the failure path.
type brokenStore struct {
	*store.Memory
}

func (b *brokenStore) UpsertLoop(context.Context, string, ledger.RawRecord) (ledger.RawRecord, error) {
	return nil, errors.New("backend down")
}

func TestCreateLoop_StoreOutageIs502(t *testing.T) {
	// A store outage is retryable, so the client gets 502 rather than 500.
	cache := ledger.NewCache(&brokenStore{Memory: store.NewMemory()}, nil, "caddie-1", nil)
	h := NewHandler(cache, nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/loops", LoopRequest{
		Date: "2024-03-10", Course: "Pine Valley", LoopType: "Single", BagFee: 50,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_PicksUpStoreRecords(t *testing.T) {
	srv, mem := newTestServer(t)

	// Seed a legacy record behind the cache's back, then refresh.
	mem.Seed("caddie-1", ledger.RawRecord{
		"id": "legacy-1", "date": "2024-03-10", "bag_fee": "55", "tip": 20, "tip_type": "cash",
	})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/refresh", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	listResp := doJSON(t, http.MethodGet, srv.URL+"/api/loops", nil)
	loops := decode[[]LoopDTO](t, listResp)
	require.Len(t, loops, 1)
	assert.Equal(t, 75.0, loops[0].Total)
	assert.Equal(t, 20.0, loops[0].CashTip)
}
