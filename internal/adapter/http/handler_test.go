package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/openroost/gatehouse/internal/adapter/fsm"
	adapter "github.com/openroost/gatehouse/internal/adapter/http"
	"github.com/openroost/gatehouse/internal/adapter/secret"
	"github.com/openroost/gatehouse/internal/adapter/sqlite"
	"github.com/openroost/gatehouse/internal/adapter/wallet"
	"github.com/openroost/gatehouse/internal/app"
	"github.com/openroost/gatehouse/internal/auth"
	"github.com/openroost/gatehouse/internal/domain"
)

// noopPublisher is a no-op EventPublisher for tests.
type noopPublisher struct{}

func (p *noopPublisher) Publish(_ context.Context, _ domain.Event, _ domain.Reservation) error {
	return nil
}

type testServer struct {
	*httptest.Server
	innkeeperToken string
}

// newTestServer wires the full stack over in-memory SQLite and bootstraps an
// innkeeper wallet, returning the server and the innkeeper's token.
func newTestServer(t *testing.T) *testServer {
	return newTestServerTTL(t, time.Hour)
}

func newTestServerTTL(t *testing.T, reservationTTL time.Duration) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewJWTCodec([]byte("test-secret"))
	codec := secret.New(reservationTTL)

	walletSvc := wallet.New(store.Wallets(), tokens, codec, wallet.Config{})
	tenantSvc := app.NewTenantService(store.Tenants(), walletSvc)
	reservationSvc := app.NewReservationService(store.Reservations(), codec, fsm.New(), &noopPublisher{}, tenantSvc)

	ctx := context.Background()
	_, w, innkeeperToken, err := tenantSvc.Provision(ctx, "innkeeper")
	if err != nil {
		t.Fatalf("bootstrapping innkeeper: %v", err)
	}
	if err := walletSvc.MarkInnkeeper(ctx, w.ID); err != nil {
		t.Fatalf("marking innkeeper: %v", err)
	}

	router := chi.NewMux()
	router.Use(adapter.Authenticate(tokens, walletSvc, tenantSvc))

	api := humachi.New(router, huma.DefaultConfig("gatehouse", "0.1.0"))
	adapter.Register(api, reservationSvc, tenantSvc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, innkeeperToken: innkeeperToken}
}

// doRequest performs an HTTP request, optionally with a Bearer token.
func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

const reservationBody = `{
	"tenant_name": "Acme",
	"tenant_reason": "Issue permits to clients",
	"contact_name": "Ada",
	"contact_email": "ada@acme.test",
	"contact_phone": "555-0100"
}`

// mustReserve creates a reservation via the API and returns its id.
func mustReserve(t *testing.T, srv *testServer) string {
	t.Helper()

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations", "", reservationBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create reservation: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		ReservationID string `json:"reservation_id"`
	}
	decode(t, resp, &out)

	if out.ReservationID == "" {
		t.Fatal("reservation_id should not be empty")
	}
	return out.ReservationID
}

// mustApprove approves a reservation and returns the one-time password.
func mustApprove(t *testing.T, srv *testServer, id string) string {
	t.Helper()

	resp := doRequest(t, http.MethodPut, srv.URL+"/innkeeper/reservations/"+id+"/approve", srv.innkeeperToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		ReservationPwd string `json:"reservation_pwd"`
	}
	decode(t, resp, &out)

	if out.ReservationPwd == "" {
		t.Fatal("reservation_pwd should not be empty")
	}
	return out.ReservationPwd
}

// --- Full lifecycle ---

func TestLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)

	// Check in with the one-time password.
	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", fmt.Sprintf(`{"reservation_pwd":%q}`, pwd))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check-in: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var checkin struct {
		WalletID  string `json:"wallet_id"`
		WalletKey string `json:"wallet_key"`
		Token     string `json:"token"`
	}
	decode(t, resp, &checkin)

	if checkin.WalletID == "" || checkin.Token == "" {
		t.Fatal("check-in should return a wallet id and token")
	}

	// The new token resolves the tenant's own record.
	resp = doRequest(t, http.MethodGet, srv.URL+"/tenant", checkin.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("self: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var self adapter.TenantResponse
	decode(t, resp, &self)

	if self.TenantName != "Acme" {
		t.Errorf("TenantName = %q, want %q", self.TenantName, "Acme")
	}
	if self.WalletID != checkin.WalletID {
		t.Errorf("WalletID = %q, want %q", self.WalletID, checkin.WalletID)
	}
}

// --- Create ---

func TestCreateReservation_MissingField(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations", "",
		`{"tenant_name":"Acme"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Check-in failures ---

func TestCheckIn_WrongPassword(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	mustApprove(t, srv, id)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", `{"reservation_pwd":"wrong"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestCheckIn_BeforeApproval(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", `{"reservation_pwd":"anything"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCheckIn_Twice(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)

	body := fmt.Sprintf(`{"reservation_pwd":%q}`, pwd)
	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in", "", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first check-in: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in", "", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestCheckIn_Expired(t *testing.T) {
	// A nanosecond TTL is long gone by the time the check-in arrives.
	srv := newTestServerTTL(t, time.Nanosecond)

	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", fmt.Sprintf(`{"reservation_pwd":%q}`, pwd))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestCheckIn_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/nonexistent/check-in",
		"", `{"reservation_pwd":"pwd"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- Approve / Reject ---

func TestApprove_Twice(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	mustApprove(t, srv, id)

	resp := doRequest(t, http.MethodPut, srv.URL+"/innkeeper/reservations/"+id+"/approve", srv.innkeeperToken, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestReject(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)

	resp := doRequest(t, http.MethodPut, srv.URL+"/innkeeper/reservations/"+id+"/reject", srv.innkeeperToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var rec adapter.ReservationResponse
	decode(t, resp, &rec)

	if rec.State != "rejected" {
		t.Errorf("State = %q, want %q", rec.State, "rejected")
	}

	// Rejection is terminal.
	resp = doRequest(t, http.MethodPut, srv.URL+"/innkeeper/reservations/"+id+"/approve", srv.innkeeperToken, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("approve after reject: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

// --- Innkeeper gating ---

func TestInnkeeperRoutes_RequireInnkeeperToken(t *testing.T) {
	srv := newTestServer(t)
	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)

	// Check in to get an ordinary tenant token.
	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", fmt.Sprintf(`{"reservation_pwd":%q}`, pwd))
	var checkin struct {
		Token string `json:"token"`
	}
	decode(t, resp, &checkin)

	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/innkeeper/reservations"},
		{http.MethodPut, "/innkeeper/reservations/" + id + "/approve"},
		{http.MethodPut, "/innkeeper/reservations/" + id + "/reject"},
		{http.MethodGet, "/innkeeper/tenants"},
		{http.MethodGet, "/innkeeper/tenants/some-id"},
	}

	for _, token := range []string{"", checkin.Token} {
		for _, route := range routes {
			resp := doRequest(t, route.method, srv.URL+route.path, token, "")
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("%s %s with token %q: status = %d, want %d",
					route.method, route.path, token, resp.StatusCode, http.StatusUnauthorized)
			}
		}
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/tenant", "not-a-jwt", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSelf_Anonymous(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/tenant", "", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- Innkeeper listings ---

func TestListReservations_ShowsExpiredState(t *testing.T) {
	srv := newTestServerTTL(t, time.Nanosecond)

	id := mustReserve(t, srv)
	mustApprove(t, srv, id)

	resp := doRequest(t, http.MethodGet, srv.URL+"/innkeeper/reservations", srv.innkeeperToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		Results []adapter.ReservationResponse `json:"results"`
	}
	decode(t, resp, &out)

	if len(out.Results) != 1 {
		t.Fatalf("got %d reservations, want 1", len(out.Results))
	}
	if out.Results[0].State != "expired" {
		t.Errorf("State = %q, want %q", out.Results[0].State, "expired")
	}
}

func TestListTenants(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)
	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", fmt.Sprintf(`{"reservation_pwd":%q}`, pwd))
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, srv.URL+"/innkeeper/tenants", srv.innkeeperToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		Results []adapter.TenantResponse `json:"results"`
	}
	decode(t, resp, &out)

	// The innkeeper tenant plus the checked-in one.
	if len(out.Results) != 2 {
		t.Errorf("got %d tenants, want 2", len(out.Results))
	}
}

// --- Tenant token ---

func TestTenantToken(t *testing.T) {
	srv := newTestServer(t)

	id := mustReserve(t, srv)
	pwd := mustApprove(t, srv, id)
	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/reservations/"+id+"/check-in",
		"", fmt.Sprintf(`{"reservation_pwd":%q}`, pwd))
	resp.Body.Close()

	// Resolve the tenant id via the innkeeper listing.
	resp = doRequest(t, http.MethodGet, srv.URL+"/innkeeper/tenants", srv.innkeeperToken, "")
	var list struct {
		Results []adapter.TenantResponse `json:"results"`
	}
	decode(t, resp, &list)

	var tenantID string
	for _, tenant := range list.Results {
		if tenant.TenantName == "Acme" {
			tenantID = tenant.TenantID
		}
	}
	if tenantID == "" {
		t.Fatal("checked-in tenant not found in listing")
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/multitenancy/tenant/"+tenantID+"/token", "", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)
	if out.Token == "" {
		t.Error("token should not be empty")
	}

	// A managed wallet rejects a supplied key.
	resp = doRequest(t, http.MethodPost, srv.URL+"/multitenancy/tenant/"+tenantID+"/token",
		"", `{"wallet_key":"unexpected"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestTenantToken_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/multitenancy/tenant/nonexistent/token", "", `{}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
