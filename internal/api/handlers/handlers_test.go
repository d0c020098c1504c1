package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/unslug/backend/internal/contracts"
	"github.com/wonny/unslug/backend/internal/gate"
	"github.com/wonny/unslug/backend/internal/strategycfg"
	"github.com/wonny/unslug/backend/pkg/logger"
)

type fakeSignals struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*contracts.SignalRecord
}

func newFakeSignals() *fakeSignals {
	return &fakeSignals{records: make(map[int64]*contracts.SignalRecord)}
}

func (f *fakeSignals) SaveSignal(ctx context.Context, rec *contracts.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeSignals) LatestBySymbol(ctx context.Context, symbol string) (*contracts.SignalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *contracts.SignalRecord
	for _, r := range f.records {
		if r.Symbol != symbol {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeSignals) ListLatest(ctx context.Context, n int) ([]contracts.SignalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bySymbol := make(map[string]*contracts.SignalRecord)
	for _, r := range f.records {
		if cur, ok := bySymbol[r.Symbol]; !ok || r.ID > cur.ID {
			bySymbol[r.Symbol] = r
		}
	}
	out := make([]contracts.SignalRecord, 0, len(bySymbol))
	for _, r := range bySymbol {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CombinedTrust > out[j].CombinedTrust })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (f *fakeSignals) ApproveSignal(ctx context.Context, signalID int64, status contracts.Status) (*contracts.SignalRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[signalID]
	if !ok {
		return nil, false, nil
	}
	if rec.Status != contracts.StatusPendingReview {
		cp := *rec
		return &cp, false, nil
	}
	rec.Status = status
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, true, nil
}

type fakeApprovals struct {
	mu     sync.Mutex
	nextID int64
	rows   []contracts.ApprovalRecord
}

func (f *fakeApprovals) SaveApproval(ctx context.Context, rec *contracts.ApprovalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	f.rows = append(f.rows, *rec)
	return nil
}

func (f *fakeApprovals) ListApprovals(ctx context.Context, symbol string) ([]contracts.ApprovalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contracts.ApprovalRecord
	for _, r := range f.rows {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCache struct {
	records map[string]*contracts.SignalRecord
}

func (f *fakeCache) GetLatestSignal(ctx context.Context, symbol string) (*contracts.SignalRecord, bool, error) {
	rec, ok := f.records[symbol]
	return rec, ok, nil
}

func seedSignal(t *testing.T, signals *fakeSignals, symbol string, unslug, fear, flow float64) *contracts.SignalRecord {
	t.Helper()
	rec := &contracts.SignalRecord{
		Symbol:        symbol,
		TS:            time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		UnslugScore:   unslug,
		FearScore:     fear,
		FlowScore:     flow,
		CombinedTrust: gate.CombinedTrust(unslug, fear),
		Signal:        contracts.SignalNeutral,
		Status:        contracts.StatusPendingReview,
	}
	if err := signals.SaveSignal(context.Background(), rec); err != nil {
		t.Fatalf("SaveSignal() error = %v", err)
	}
	return rec
}

type testEnv struct {
	signals   *fakeSignals
	approvals *fakeApprovals
	router    *mux.Router
}

func newTestEnv(t *testing.T, cache SignalCache, rule *strategycfg.CityRule) *testEnv {
	t.Helper()
	log := logger.NewNop()
	signals := newFakeSignals()
	approvals := &fakeApprovals{}
	approver := gate.NewApprover(signals, approvals, contracts.SystemClock{}, log)

	sh := NewSignalHandler(signals, cache, log)
	ah := NewApprovalHandler(approver, approvals, log)
	ch := NewCityHandler(signals, rule, log)

	r := mux.NewRouter()
	r.HandleFunc("/api/signals", sh.ListLatest).Methods("GET")
	r.HandleFunc("/api/signals/{symbol}/latest", sh.GetLatest).Methods("GET")
	r.HandleFunc("/api/signals/{id}/approve", ah.Approve).Methods("POST")
	r.HandleFunc("/api/approvals/{symbol}", ah.ListBySymbol).Methods("GET")
	r.HandleFunc("/api/city", ch.GetCity).Methods("GET")

	return &testEnv{signals: signals, approvals: approvals, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestListLatest(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	seedSignal(t, env.signals, "SPY", 0.8, 0.5, 0.6)
	seedSignal(t, env.signals, "QQQ", 0.3, 0.2, 0.4)

	rr := env.do(t, "GET", "/api/signals", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Count   int                      `json:"count"`
		Signals []contracts.SignalRecord `json:"signals"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	if resp.Signals[0].Symbol != "SPY" {
		t.Errorf("first signal = %s, want SPY (strongest combined trust)", resp.Signals[0].Symbol)
	}
}

func TestListLatestInvalidLimit(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, "GET", "/api/signals?limit=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetLatest(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	seedSignal(t, env.signals, "SPY", 0.8, 0.5, 0.6)

	rr := env.do(t, "GET", "/api/signals/spy/latest", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var rec contracts.SignalRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if rec.Symbol != "SPY" {
		t.Errorf("symbol = %s, want SPY", rec.Symbol)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, "GET", "/api/signals/TLT/latest", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetLatestServedFromCache(t *testing.T) {
	cached := &contracts.SignalRecord{ID: 99, Symbol: "SPY", CombinedTrust: 0.9}
	env := newTestEnv(t, &fakeCache{records: map[string]*contracts.SignalRecord{"SPY": cached}}, nil)

	rr := env.do(t, "GET", "/api/signals/SPY/latest", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var rec contracts.SignalRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if rec.ID != 99 {
		t.Errorf("id = %d, want cached record 99", rec.ID)
	}
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := seedSignal(t, env.signals, "SPY", 0.8, 0.5, 0.6)

	body := ApproveRequest{ApprovedBy: "reviewer", Decision: "BUY", Note: "looks solid"}
	rr := env.do(t, "POST", fmt.Sprintf("/api/signals/%d/approve", rec.ID), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var got contracts.SignalRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Status != contracts.StatusApprovedBuy {
		t.Errorf("status = %s, want %s", got.Status, contracts.StatusApprovedBuy)
	}

	trail, _ := env.approvals.ListApprovals(context.Background(), "SPY")
	if len(trail) != 1 {
		t.Fatalf("approvals = %d, want 1", len(trail))
	}
	if trail[0].ApprovedBy != "reviewer" {
		t.Errorf("approved_by = %s, want reviewer", trail[0].ApprovedBy)
	}
}

func TestApproveConflict(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := seedSignal(t, env.signals, "SPY", 0.8, 0.5, 0.6)

	first := env.do(t, "POST", fmt.Sprintf("/api/signals/%d/approve", rec.ID),
		ApproveRequest{ApprovedBy: "alice", Decision: "BUY"})
	if first.Code != http.StatusOK {
		t.Fatalf("first decision status = %d, want %d", first.Code, http.StatusOK)
	}

	second := env.do(t, "POST", fmt.Sprintf("/api/signals/%d/approve", rec.ID),
		ApproveRequest{ApprovedBy: "bob", Decision: "RISK"})
	if second.Code != http.StatusConflict {
		t.Errorf("conflicting decision status = %d, want %d", second.Code, http.StatusConflict)
	}

	// replaying the winning decision stays idempotent
	replay := env.do(t, "POST", fmt.Sprintf("/api/signals/%d/approve", rec.ID),
		ApproveRequest{ApprovedBy: "alice", Decision: "BUY"})
	if replay.Code != http.StatusOK {
		t.Errorf("replay status = %d, want %d", replay.Code, http.StatusOK)
	}

	trail, _ := env.approvals.ListApprovals(context.Background(), "SPY")
	if len(trail) != 1 {
		t.Errorf("approvals = %d, want 1", len(trail))
	}
}

func TestApproveValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := seedSignal(t, env.signals, "SPY", 0.8, 0.5, 0.6)

	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{
			name: "non-numeric id",
			path: "/api/signals/abc/approve",
			body: ApproveRequest{ApprovedBy: "alice", Decision: "BUY"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown signal",
			path: "/api/signals/404/approve",
			body: ApproveRequest{ApprovedBy: "alice", Decision: "BUY"},
			want: http.StatusNotFound,
		},
		{
			name: "invalid decision",
			path: fmt.Sprintf("/api/signals/%d/approve", rec.ID),
			body: ApproveRequest{ApprovedBy: "alice", Decision: "HOLD"},
			want: http.StatusBadRequest,
		},
		{
			name: "missing approver",
			path: fmt.Sprintf("/api/signals/%d/approve", rec.ID),
			body: ApproveRequest{Decision: "BUY"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestGetCity(t *testing.T) {
	rule := &strategycfg.CityRule{ThrivingMin: 0.6, StableMin: 0.4}
	env := newTestEnv(t, nil, rule)
	seedSignal(t, env.signals, "SPY", 0.8, 0.7, 0.6)
	seedSignal(t, env.signals, "QQQ", 0.7, 0.6, 0.5)

	rr := env.do(t, "GET", "/api/city", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		City    contracts.CityToken `json:"city"`
		Symbols int                 `json:"symbols"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.City.CityState != contracts.CityThriving {
		t.Errorf("city state = %s, want %s", resp.City.CityState, contracts.CityThriving)
	}
	if resp.Symbols != 2 {
		t.Errorf("symbols = %d, want 2", resp.Symbols)
	}
}

func TestGetCityNoSignals(t *testing.T) {
	env := newTestEnv(t, nil, &strategycfg.CityRule{ThrivingMin: 0.6, StableMin: 0.4})

	rr := env.do(t, "GET", "/api/city", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetCityMissingRule(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	seedSignal(t, env.signals, "SPY", 0.8, 0.7, 0.6)

	rr := env.do(t, "GET", "/api/city", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}
