package server_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cluo0901/roomgpt/internal/auth"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	billingrepo "github.com/cluo0901/roomgpt/internal/billing/repository"
	billingservice "github.com/cluo0901/roomgpt/internal/billing/service"
	checkoutservice "github.com/cluo0901/roomgpt/internal/checkout/service"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/generation"
	"github.com/cluo0901/roomgpt/internal/payment/adapters/stripe"
	paymentrepo "github.com/cluo0901/roomgpt/internal/payment/repository"
	paymentservice "github.com/cluo0901/roomgpt/internal/payment/service"
	"github.com/cluo0901/roomgpt/internal/server"
	usagerepo "github.com/cluo0901/roomgpt/internal/usage/repository"
	userrepo "github.com/cluo0901/roomgpt/internal/user/repository"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testJWTSecret     = "server-test-secret"
	testWebhookSecret = "whsec_server_test"
	adminEmail        = "admin@example.com"
)

type testServer struct {
	engine   *gin.Engine
	db       *gorm.DB
	node     *snowflake.Node
	verifier *auth.Verifier
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_users_email ON users(email)`,
		`CREATE TABLE billing_profiles (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			plan_type TEXT NOT NULL,
			subscription_status TEXT,
			stripe_customer_id TEXT,
			stripe_subscription_id TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_billing_profiles_user ON billing_profiles(user_id)`,
		`CREATE TABLE credit_balances (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			remaining BIGINT NOT NULL DEFAULT 0,
			plan_type TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_credit_balances_user ON credit_balances(user_id)`,
		`CREATE TABLE usage_events (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			plan_type TEXT,
			provider TEXT NOT NULL,
			approach TEXT NOT NULL,
			credits_consumed BIGINT NOT NULL DEFAULT 1,
			seed BIGINT,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE payment_events (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			user_id BIGINT,
			payload TEXT NOT NULL,
			received_at TIMESTAMP NOT NULL,
			processed_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX ux_payment_events_provider_event_id ON payment_events(provider, provider_event_id)`,
		`CREATE TABLE checkout_sessions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			session_id TEXT NOT NULL,
			plan_key TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_checkout_sessions_session ON checkout_sessions(session_id)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func newTestServer(t *testing.T, controlURL string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	cfg := config.Config{
		AppName:        "roomgpt-test",
		BillingEnforce: true,
		AuthJWTSecret:  testJWTSecret,
		AdminEmails:    []string{adminEmail},
		Stripe: config.StripeConfig{
			SecretKey:     "sk_test_fake",
			WebhookSecret: testWebhookSecret,
			SuccessURL:    "http://localhost:3000/billing/success",
			CancelURL:     "http://localhost:3000/billing/cancel",
		},
		Control: config.ControlConfig{
			ServiceURL:     controlURL,
			Endpoint:       "/generate",
			Token:          "control-token",
			Strength:       0.35,
			GuidanceScale:  6,
			InferenceSteps: 30,
			CannyScale:     0.75,
			CannyLow:       100,
			CannyHigh:      200,
		},
	}

	t.Setenv("STRIPE_PRICE_PAY_PER_USE", "price_ppu")
	t.Setenv("STRIPE_PRICE_BUNDLE_10", "price_b10")
	t.Setenv("STRIPE_PRICE_BUNDLE_25", "price_b25")
	t.Setenv("STRIPE_PRICE_SUBSCRIPTION_UNLIMITED", "price_sub")
	holder, err := config.NewPlanCatalogHolder()
	if err != nil {
		t.Fatalf("plan catalog: %v", err)
	}

	verifier, err := auth.NewVerifier(testJWTSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	log := zap.NewNop()

	billingSvc := billingservice.NewService(billingservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Cfg:   cfg,

		Repo:      billingrepo.Provide(),
		UserRepo:  userrepo.Provide(),
		UsageRepo: usagerepo.Provide(),
	})

	checkoutSvc := checkoutservice.NewService(checkoutservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Cfg:        cfg,
		Plans:      holder,
		BillingSvc: billingSvc,
	})

	adapter, err := stripe.NewAdapter(testWebhookSecret)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Adapter:    adapter,
		Plans:      holder,
		BillingSvc: billingSvc,
		Repo:       paymentrepo.Provide(),
	})

	engine := gin.New()
	engine.Use(server.ErrorHandlingMiddleware())

	server.NewServer(server.ServerParams{
		Gin:   engine,
		Cfg:   cfg,
		DB:    db,
		GenID: node,

		Verifier:      verifier,
		UserRepo:      userrepo.Provide(),
		BillingSvc:    billingSvc,
		CheckoutSvc:   checkoutSvc,
		PaymentSvc:    paymentSvc,
		GenerationSvc: generation.NewClient(cfg, log),
	})

	return &testServer{engine: engine, db: db, node: node, verifier: verifier}
}

func (ts *testServer) seedUser(t *testing.T, email string) snowflake.ID {
	t.Helper()
	id := ts.node.Generate()
	now := time.Now().UTC()
	if err := ts.db.Exec(
		"INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, email, now, now,
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func (ts *testServer) seedMeteredUser(t *testing.T, email string, credits int64) snowflake.ID {
	t.Helper()
	id := ts.seedUser(t, email)
	now := time.Now().UTC()
	if err := ts.db.Exec(
		"INSERT INTO billing_profiles (id, user_id, plan_type, created_at, updated_at) VALUES (?, ?, 'bundle', ?, ?)",
		ts.node.Generate(), id, now, now,
	).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := ts.db.Exec(
		"INSERT INTO credit_balances (id, user_id, remaining, plan_type, updated_at) VALUES (?, ?, ?, 'bundle', ?)",
		ts.node.Generate(), id, credits, now,
	).Error; err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	return id
}

func (ts *testServer) token(t *testing.T, id snowflake.ID, email string) string {
	t.Helper()
	token, err := ts.verifier.Sign(auth.Identity{UserID: id, Email: email}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (ts *testServer) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func signedWebhookBody(payload string, timestamp int64) (string, string) {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	return payload, fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestGenerateRequiresAuth(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	rec := ts.request(t, http.MethodPost, "/generate", "", `{"imageUrl":"https://img/x.png","room":"Bedroom","theme":"Modern"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj["type"] != "unauthorized" {
		t.Fatalf("expected unauthorized error type, got %v", errObj)
	}
}

func TestGenerateDeniedWithoutPlan(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedUser(t, "newcomer@example.com")
	token := ts.token(t, id, "newcomer@example.com")

	rec := ts.request(t, http.MethodPost, "/generate", token, `{"imageUrl":"https://img/x.png","room":"Bedroom","theme":"Modern"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["plan"] != "trial" {
		t.Fatalf("expected trial plan in denial, got %v", body["plan"])
	}
	if body["reason"] != billingdomain.ReasonNoActivePlan {
		t.Fatalf("unexpected denial reason: %v", body["reason"])
	}
}

func TestGenerateOutOfCreditsIncludesRemaining(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedMeteredUser(t, "broke@example.com", 0)
	token := ts.token(t, id, "broke@example.com")

	rec := ts.request(t, http.MethodPost, "/generate", token, `{"imageUrl":"https://img/x.png","room":"Bedroom","theme":"Modern"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["reason"] != billingdomain.ReasonOutOfCredits {
		t.Fatalf("unexpected denial reason: %v", body["reason"])
	}
	if remaining, ok := body["remaining_credits"].(float64); !ok || remaining != 0 {
		t.Fatalf("expected remaining_credits 0, got %v", body["remaining_credits"])
	}
}

func TestGenerateConsumesCreditAndRecordsUsage(t *testing.T) {
	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer control-token" {
			t.Errorf("unexpected control auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"image":"https://cdn/restyled.png","seed":424242,"inference_seconds":3.2}`)
	}))
	defer control.Close()

	ts := newTestServer(t, control.URL)

	id := ts.seedMeteredUser(t, "funded@example.com", 2)
	token := ts.token(t, id, "funded@example.com")

	rec := ts.request(t, http.MethodPost, "/generate", token, `{"imageUrl":"https://img/room.png","room":"Bedroom","theme":"Vintage"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["generated"] != "https://cdn/restyled.png" {
		t.Fatalf("unexpected generated url: %v", body["generated"])
	}
	if body["original"] != "https://img/room.png" {
		t.Fatalf("unexpected original url: %v", body["original"])
	}

	var remaining int64
	if err := ts.db.Raw("SELECT remaining FROM credit_balances WHERE user_id = ?", id).Scan(&remaining).Error; err != nil {
		t.Fatalf("scan remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 credit left, got %d", remaining)
	}

	var usageCount int64
	if err := ts.db.Raw("SELECT COUNT(1) FROM usage_events WHERE user_id = ?", id).Scan(&usageCount).Error; err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if usageCount != 1 {
		t.Fatalf("expected one usage event, got %d", usageCount)
	}

	var seed int64
	if err := ts.db.Raw("SELECT seed FROM usage_events WHERE user_id = ?", id).Scan(&seed).Error; err != nil {
		t.Fatalf("scan seed: %v", err)
	}
	if seed != 424242 {
		t.Fatalf("expected recorded seed 424242, got %d", seed)
	}
}

func TestGenerateUpstreamFailureDoesNotSpendCredit(t *testing.T) {
	control := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"pipeline busy"}`)
	}))
	defer control.Close()

	ts := newTestServer(t, control.URL)

	id := ts.seedMeteredUser(t, "unlucky@example.com", 3)
	token := ts.token(t, id, "unlucky@example.com")

	rec := ts.request(t, http.MethodPost, "/generate", token, `{"imageUrl":"https://img/room.png","room":"Bedroom","theme":"Vintage"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}

	var remaining int64
	if err := ts.db.Raw("SELECT remaining FROM credit_balances WHERE user_id = ?", id).Scan(&remaining).Error; err != nil {
		t.Fatalf("scan remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("failed generation must not spend credits, got %d remaining", remaining)
	}
}

func TestGenerateValidatesRequestBody(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedMeteredUser(t, "sloppy@example.com", 1)
	token := ts.token(t, id, "sloppy@example.com")

	rec := ts.request(t, http.MethodPost, "/generate", token, `{"imageUrl":"","room":"Bedroom"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthEnsuresUserRow(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.node.Generate()
	token := ts.token(t, id, "firsttimer@example.com")

	rec := ts.request(t, http.MethodGet, "/api/billing/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var email string
	if err := ts.db.Raw("SELECT email FROM users WHERE id = ?", id).Scan(&email).Error; err != nil {
		t.Fatalf("scan user: %v", err)
	}
	if email != "firsttimer@example.com" {
		t.Fatalf("expected user row for authenticated caller, got %q", email)
	}

	// Billing rows referencing the fresh user satisfy the users FK.
	adminID := ts.seedUser(t, adminEmail)
	adminToken := ts.token(t, adminID, adminEmail)
	rec = ts.request(t, http.MethodPost, "/api/admin/users", adminToken, `{"action":"grant_credits","email":"firsttimer@example.com","credits":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 granting to fresh user, got %d: %s", rec.Code, rec.Body.String())
	}

	var remaining int64
	if err := ts.db.Raw("SELECT remaining FROM credit_balances WHERE user_id = ?", id).Scan(&remaining).Error; err != nil {
		t.Fatalf("scan remaining: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("expected 5 credits, got %d", remaining)
	}
}

func TestBillingOverview(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedMeteredUser(t, "viewer@example.com", 7)
	token := ts.token(t, id, "viewer@example.com")

	rec := ts.request(t, http.MethodGet, "/api/billing/me", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["plan"] != "bundle" {
		t.Fatalf("expected bundle plan, got %v", body["plan"])
	}
	if remaining, ok := body["remaining_credits"].(float64); !ok || remaining != 7 {
		t.Fatalf("expected 7 remaining credits, got %v", body["remaining_credits"])
	}
}

func TestCheckoutRejectsUnknownPlan(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedUser(t, "shopper@example.com")
	token := ts.token(t, id, "shopper@example.com")

	rec := ts.request(t, http.MethodPost, "/api/billing/checkout", token, `{"plan":"premium_gold"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.request(t, http.MethodPost, "/api/billing/checkout", token, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing plan, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUsersAccessControl(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	rec := ts.request(t, http.MethodPost, "/api/admin/users", "", `{"action":"lookup","email":"x@example.com"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	id := ts.seedUser(t, "pleb@example.com")
	token := ts.token(t, id, "pleb@example.com")
	rec = ts.request(t, http.MethodPost, "/api/admin/users", token, `{"action":"lookup","email":"x@example.com"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUsersActions(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	adminID := ts.seedUser(t, adminEmail)
	token := ts.token(t, adminID, adminEmail)

	ts.seedUser(t, "customer@example.com")

	rec := ts.request(t, http.MethodPost, "/api/admin/users", token, `{"action":"lookup","email":"missing@example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.request(t, http.MethodPost, "/api/admin/users", token, `{"action":"grant_credits","email":"customer@example.com","credits":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success flag, got %v", body["success"])
	}
	credits, _ := body["credits"].(map[string]any)
	if remaining, ok := credits["remaining"].(float64); !ok || remaining != 15 {
		t.Fatalf("expected 15 remaining, got %v", credits)
	}

	rec = ts.request(t, http.MethodPost, "/api/admin/users", token, `{"action":"set_plan","email":"customer@example.com","plan":"subscription"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	billing, _ := body["billing"].(map[string]any)
	if billing["plan_type"] != "subscription" {
		t.Fatalf("expected subscription plan, got %v", billing)
	}

	rec = ts.request(t, http.MethodPost, "/api/admin/users", token, `{"action":"reboot","email":"customer@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookReplayIsAcknowledged(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	id := ts.seedUser(t, "webhook@example.com")

	now := time.Now().UTC().Unix()
	payload, signature := signedWebhookBody(fmt.Sprintf(
		`{"id":"evt_http_1","type":"checkout.session.completed","created":%d,"data":{"object":{"id":"cs_http_1","mode":"payment","customer":"cus_http_1","created":%d,"metadata":{"userId":"%s","plan":"bundle_10"}}}}`,
		now, now, id.String(),
	), now)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		ts.engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first delivery expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("replay expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var remaining int64
	if err := ts.db.Raw("SELECT remaining FROM credit_balances WHERE user_id = ?", id).Scan(&remaining).Error; err != nil {
		t.Fatalf("scan remaining: %v", err)
	}
	if remaining != 10 {
		t.Fatalf("replay must not double-apply, got %d credits", remaining)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	ts := newTestServer(t, "http://control.invalid")

	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{"id":"evt_bad"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj["type"] != "invalid_signature" {
		t.Fatalf("expected invalid_signature, got %v", errObj)
	}
}
