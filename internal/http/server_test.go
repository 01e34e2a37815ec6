package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fixops/internal/auth"
	"fixops/internal/core"
	"fixops/internal/services"
)

// fakeStore backs every gateway port in memory.
type fakeStore struct {
	nextID    int64
	schedules map[int64]core.ScheduleRecord
	entries   map[int64]core.LedgerEntry
	materials map[int64]core.Material
	users     map[string]core.User
	employees map[int64]core.Employee
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:    1,
		schedules: make(map[int64]core.ScheduleRecord),
		entries:   make(map[int64]core.LedgerEntry),
		materials: make(map[int64]core.Material),
		users:     make(map[string]core.User),
		employees: make(map[int64]core.Employee),
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

// errNotFound carries sql.ErrNoRows like the real repository does, so
// the handler's 404 mapping is exercised.
var errNotFound = fmt.Errorf("fake: %w", sql.ErrNoRows)

func (f *fakeStore) CreateSchedule(_ context.Context, s core.ScheduleRecord) (int64, error) {
	s.ID = f.id()
	f.schedules[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, s core.ScheduleRecord) error {
	if _, ok := f.schedules[s.ID]; !ok {
		return errNotFound
	}
	f.schedules[s.ID] = s
	return nil
}

func (f *fakeStore) DeleteSchedule(_ context.Context, id int64) error {
	if _, ok := f.schedules[id]; !ok {
		return errNotFound
	}
	delete(f.schedules, id)
	return nil
}

func (f *fakeStore) GetSchedule(_ context.Context, id int64) (core.ScheduleRecord, error) {
	s, ok := f.schedules[id]
	if !ok {
		return core.ScheduleRecord{}, errNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSchedules(_ context.Context, rng core.DateRange) ([]core.ScheduleRecord, error) {
	var out []core.ScheduleRecord
	for _, s := range f.schedules {
		if rng.Empty() || rng.Contains(s.DayKey()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateEntry(_ context.Context, e core.LedgerEntry) (int64, error) {
	e.ID = f.id()
	f.entries[e.ID] = e
	return e.ID, nil
}

func (f *fakeStore) UpdateEntry(_ context.Context, e core.LedgerEntry) error {
	if _, ok := f.entries[e.ID]; !ok {
		return errNotFound
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := f.entries[id]; !ok {
		return errNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeStore) GetEntry(_ context.Context, id int64) (core.LedgerEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return core.LedgerEntry{}, errNotFound
	}
	return e, nil
}

func (f *fakeStore) ListEntries(_ context.Context, rng core.DateRange) ([]core.LedgerEntry, error) {
	var out []core.LedgerEntry
	for _, e := range f.entries {
		if rng.Empty() || rng.Contains(e.ItemDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateMaterial(_ context.Context, m core.Material) (int64, error) {
	m.ID = f.id()
	f.materials[m.ID] = m
	return m.ID, nil
}

func (f *fakeStore) GetMaterial(_ context.Context, id int64) (core.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return core.Material{}, errNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMaterials(_ context.Context) ([]core.Material, error) {
	var out []core.Material
	for _, m := range f.materials {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) AdjustStock(_ context.Context, id int64, delta float64) (core.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return core.Material{}, errNotFound
	}
	if m.Stock+delta < 0 {
		return core.Material{}, core.ErrNegativeStock
	}
	m.Stock += delta
	f.materials[id] = m
	return m, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u core.User) (int64, error) {
	u.ID = f.id()
	f.users[u.Username] = u
	return u.ID, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	u, ok := f.users[username]
	if !ok {
		return core.User{}, errNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateEmployee(_ context.Context, e core.Employee) (int64, error) {
	e.ID = f.id()
	f.employees[e.ID] = e
	return e.ID, nil
}

func (f *fakeStore) ListEmployees(_ context.Context, activeOnly bool) ([]core.Employee, error) {
	var out []core.Employee
	for _, e := range f.employees {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

const testSecret = "test-secret-0123456789"

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := newFakeStore()

	scheduleSvc := services.NewScheduleService(store, nil)
	ledgerSvc := services.NewLedgerService(store, nil)

	srv := NewServer(Options{
		Addr:               "0",
		JWTSecret:          testSecret,
		TokenTTL:           time.Hour,
		RateLimitPerMinute: 10000,
		Users:              store,
		Employees:          store,
		Schedules:          scheduleSvc,
		Ledger:             ledgerSvc,
		Inventory:          services.NewInventoryService(store),
		Payroll:            services.NewPayrollService(store, store),
		Reports:            services.NewReportService(store, store),
		Importer:           services.NewImportService(scheduleSvc, ledgerSvc),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func tokenFor(t *testing.T, role core.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, core.User{
		ID: 1, Username: "tester", Role: role,
	}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLogin(t *testing.T) {
	ts, store := newTestServer(t)

	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store.users["mara"] = core.User{ID: 7, Username: "mara", PasswordHash: hash, Role: core.RoleManager}

	resp := doJSON(t, "POST", ts.URL+"/api/login", "", loginRequest{Username: "mara", Password: "correct-horse"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out loginResponse
	decodeBody(t, resp, &out)
	if out.Token == "" || out.Role != "manager" {
		t.Fatalf("response = %+v", out)
	}

	claims, err := auth.ParseToken(testSecret, out.Token)
	if err != nil || claims.Username != "mara" {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	for _, tc := range []loginRequest{
		{Username: "mara", Password: "wrong"},
		{Username: "nobody", Password: "correct-horse"},
	} {
		resp := doJSON(t, "POST", ts.URL+"/api/login", "", tc)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login %q: status = %d, want 401", tc.Username, resp.StatusCode)
		}
	}
}

func TestRoleGating(t *testing.T) {
	ts, _ := newTestServer(t)

	// No token at all.
	resp := doJSON(t, "GET", ts.URL+"/api/schedules", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", resp.StatusCode)
	}

	employee := tokenFor(t, core.RoleEmployee)
	manager := tokenFor(t, core.RoleManager)

	resp = doJSON(t, "GET", ts.URL+"/api/schedules", employee, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("employee read: status = %d", resp.StatusCode)
	}

	body := scheduleJSON{Title: "fix sink", StartTS: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	resp = doJSON(t, "POST", ts.URL+"/api/schedules", employee, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("employee write: status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/schedules", manager, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("manager write: status = %d, want 201", resp.StatusCode)
	}

	// Admin-only routes reject managers.
	resp = doJSON(t, "POST", ts.URL+"/api/users", manager, createUserRequest{Username: "x", Password: "longenough", Role: "employee"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("manager creating user: status = %d, want 403", resp.StatusCode)
	}
}

func TestScheduleNullFinancialsRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	manager := tokenFor(t, core.RoleManager)

	revenue := 1000.0
	body := scheduleJSON{
		Title:   "boiler swap",
		StartTS: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Revenue: &revenue,
		// other financials stay null
	}
	resp := doJSON(t, "POST", ts.URL+"/api/schedules", manager, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	var created scheduleJSON
	decodeBody(t, resp, &created)

	if created.Revenue == nil || *created.Revenue != 1000 {
		t.Fatalf("revenue = %v", created.Revenue)
	}
	if created.MaterialCost != nil || created.DailyWage != nil || created.ExtraCost != nil {
		t.Fatalf("absent fields must round-trip as null: %+v", created)
	}
	if created.Net != nil {
		t.Fatalf("net must be omitted while any field is absent, got %v", *created.Net)
	}
}

func TestReportEndpointAndCacheInvalidation(t *testing.T) {
	ts, _ := newTestServer(t)
	manager := tokenFor(t, core.RoleManager)

	revenue, material, wage, extra := 1000.0, 200.0, 300.0, 100.0
	resp := doJSON(t, "POST", ts.URL+"/api/schedules", manager, scheduleJSON{
		Title:        "boiler",
		StartTS:      time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Revenue:      &revenue,
		MaterialCost: &material,
		DailyWage:    &wage,
		ExtraCost:    &extra,
	})
	resp.Body.Close()
	resp = doJSON(t, "POST", ts.URL+"/api/ledger", manager, ledgerEntryJSON{
		ItemDate: "2025-01-02", Category: "fixed_expense", Amount: 50,
	})
	resp.Body.Close()

	reportURL := ts.URL + "/api/reports/daily?from=2025-01-01&to=2025-01-02"
	resp = doJSON(t, "GET", reportURL, manager, nil)
	var series services.DailySeries
	decodeBody(t, resp, &series)
	if len(series.Values) != 2 || series.Values[0] != 550 || series.Values[1] != -50 {
		t.Fatalf("series = %+v", series)
	}

	// Second read comes from cache and must match.
	resp = doJSON(t, "GET", reportURL, manager, nil)
	var cached services.DailySeries
	decodeBody(t, resp, &cached)
	if cached.Values[0] != 550 {
		t.Fatalf("cached series = %+v", cached)
	}

	// A write purges the cache; the next read reflects the new entry.
	resp = doJSON(t, "POST", ts.URL+"/api/ledger", manager, ledgerEntryJSON{
		ItemDate: "2025-01-01", Category: "extra_income", Amount: 25,
	})
	resp.Body.Close()
	resp = doJSON(t, "GET", reportURL, manager, nil)
	var fresh services.DailySeries
	decodeBody(t, resp, &fresh)
	if fresh.Values[0] != 575 {
		t.Fatalf("post-write series = %+v", fresh)
	}

	// Toggling a category changes the result without touching the others.
	resp = doJSON(t, "GET", reportURL+"&daily_wage=false", manager, nil)
	var noWage services.DailySeries
	decodeBody(t, resp, &noWage)
	if noWage.Values[0] != 875 {
		t.Fatalf("no-wage series = %+v", noWage)
	}

	// Malformed range yields an empty series, not an error.
	resp = doJSON(t, "GET", ts.URL+"/api/reports/daily?from=2025-01-31&to=2025-01-01", manager, nil)
	var empty services.DailySeries
	decodeBody(t, resp, &empty)
	if len(empty.Labels) != 0 {
		t.Fatalf("inverted range series = %+v", empty)
	}
}

func TestTotalsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	manager := tokenFor(t, core.RoleManager)

	revenue, material, wage, extra := 1000.0, 200.0, 300.0, 100.0
	resp := doJSON(t, "POST", ts.URL+"/api/schedules", manager, scheduleJSON{
		Title:        "boiler",
		StartTS:      time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Revenue:      &revenue,
		MaterialCost: &material,
		DailyWage:    &wage,
		ExtraCost:    &extra,
	})
	resp.Body.Close()

	resp = doJSON(t, "GET", ts.URL+"/api/reports/totals?from=2025-01-01&to=2025-01-02", manager, nil)
	var totals struct {
		Revenue    float64 `json:"revenue"`
		ExtraCost  float64 `json:"extra_cost"`
		GrandTotal float64 `json:"grand_total"`
	}
	decodeBody(t, resp, &totals)
	if totals.Revenue != 1000 || totals.ExtraCost != 100 || totals.GrandTotal != 550 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestAdjustStockConflict(t *testing.T) {
	ts, store := newTestServer(t)
	manager := tokenFor(t, core.RoleManager)

	store.materials[50] = core.Material{ID: 50, Name: "copper pipe", Stock: 3}

	resp := doJSON(t, "POST", ts.URL+"/api/materials/50/adjust", manager, adjustStockRequest{Delta: -5})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overdraw: status = %d, want 409", resp.StatusCode)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/materials/50/adjust", manager, adjustStockRequest{Delta: -2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: status = %d", resp.StatusCode)
	}
	var m materialJSON
	decodeBody(t, resp, &m)
	if m.Stock != 1 {
		t.Fatalf("stock = %v", m.Stock)
	}
}

func TestImportEndpoint(t *testing.T) {
	ts, store := newTestServer(t)
	admin := tokenFor(t, core.RoleAdmin)

	resp := doJSON(t, "POST", ts.URL+"/api/import", admin, importRequest{
		Schedules: []map[string]any{
			{"name": "legacy job", "start": "2025-01-01T09:00:00Z", "revenue": 500.0},
			{"name": "no date"},
		},
		Ledger: []map[string]any{
			{"date": "2025-01-02", "category": "extra_expense", "amount": 20.0},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: status = %d", resp.StatusCode)
	}
	var res services.ImportResult
	decodeBody(t, resp, &res)
	if res.SchedulesImported != 1 || res.EntriesImported != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(store.schedules) != 1 || len(store.entries) != 1 {
		t.Fatalf("store: %d schedules, %d entries", len(store.schedules), len(store.entries))
	}
}

func TestNotFoundMapsTo404(t *testing.T) {
	ts, _ := newTestServer(t)
	manager := tokenFor(t, core.RoleManager)

	resp := doJSON(t, "GET", ts.URL+"/api/schedules/9999", manager, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
