package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/handler"
	"doneasy-checkout/internal/middleware"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/repository"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

func idleTicker(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

func newTestRouter(t *testing.T, apiKey string) *mux.Router {
	t.Helper()

	repo, err := repository.NewConfirmationRepository(filepath.Join(t.TempDir(), "confirmations.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	machine := checkout.NewMachine(checkout.Settings{
		Rules: checkout.FormRules{
			MinAmount:     10000,
			MaxAmount:     10000000000,
			PresetAmounts: config.DefaultPresetAmounts,
		},
		AdminFeeBPS:   250,
		PaymentWindow: 15 * time.Minute,
		TickInterval:  time.Second,
	})
	log := logger.Discard()
	checkouts := service.NewCheckoutService(service.CheckoutOptions{
		Machine:    machine,
		Verifier:   checkout.DelayVerifier{},
		Repository: repo,
		NewTicker:  idleTicker,
	}, log)
	t.Cleanup(checkouts.Close)

	cfg := &config.Config{}
	router := mux.NewRouter()
	handler.RegisterRoutes(router,
		middleware.NewAuthMiddleware(apiKey, log).Middleware,
		handler.NewCheckoutHandler(checkouts, log),
		handler.NewCampaignHandler(checkouts, log),
		handler.NewHealthHandler(checkouts, nil, cfg, log),
	)
	return router
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *model.APIError `json:"error"`
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec, env
}

func view(t *testing.T, env envelope) handler.CheckoutView {
	t.Helper()
	var v handler.CheckoutView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

// mustOK performs a request that must succeed and returns the checkout view
func mustOK(t *testing.T, router http.Handler, method, path string, body interface{}) handler.CheckoutView {
	t.Helper()
	rec, env := do(t, router, method, path, body)
	if rec.Code >= 300 {
		t.Fatalf("%s %s: status %d: %s", method, path, rec.Code, rec.Body.String())
	}
	return view(t, env)
}

func create(t *testing.T, router http.Handler) string {
	t.Helper()
	rec, env := do(t, router, http.MethodPost, "/api/v1/checkouts", model.Seed{
		CampaignID:    "cmp-1",
		CampaignTitle: "Sumur Bersih",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	v := view(t, env)
	if v.Step != checkout.StepForm || v.Form == nil || v.Form.Stage != checkout.StageAmount {
		t.Fatalf("unexpected initial view %+v", v)
	}
	return v.ID
}

func toPayment(t *testing.T, router http.Handler, id string, donor checkout.DonorDetails) handler.CheckoutView {
	t.Helper()
	base := "/api/v1/checkouts/" + id
	mustOK(t, router, http.MethodPost, base+"/amount", handler.AmountRequest{Preset: 50000})
	mustOK(t, router, http.MethodPost, base+"/advance", nil)
	mustOK(t, router, http.MethodPost, base+"/donor", donor)
	return mustOK(t, router, http.MethodPost, base+"/advance", nil)
}

func TestCheckoutOverHTTP(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)

	v := toPayment(t, router, id, checkout.DonorDetails{Name: "Budi", Message: "Semoga berkah"})
	if v.Step != checkout.StepPayment || v.Payment == nil || v.Summary == nil {
		t.Fatalf("expected payment view, got %+v", v)
	}
	if v.Summary.TotalText != "Rp 51.250" || v.Summary.AdminFeeText != "Rp 1.250" {
		t.Errorf("unexpected summary %+v", v.Summary)
	}
	if v.Payment.RemainingText != "15:00" || v.Payment.RemainingSeconds != 900 {
		t.Errorf("unexpected countdown %s (%d)", v.Payment.RemainingText, v.Payment.RemainingSeconds)
	}
	if len(v.Payment.Channel.SettlementOptions) == 0 {
		t.Fatal("payment view has no settlement options")
	}

	v = mustOK(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/confirm", nil)
	if v.Step != checkout.StepConfirming && v.Step != checkout.StepSuccess {
		t.Fatalf("unexpected step after confirm: %s", v.Step)
	}

	deadline := time.Now().Add(2 * time.Second)
	for v.Step != checkout.StepSuccess {
		if time.Now().After(deadline) {
			t.Fatalf("checkout stuck in %s", v.Step)
		}
		time.Sleep(5 * time.Millisecond)
		v = mustOK(t, router, http.MethodGet, "/api/v1/checkouts/"+id, nil)
	}
	if v.Receipt == nil || v.Receipt.TotalText != "Rp 51.250" || !v.Terminal {
		t.Fatalf("unexpected success view %+v", v)
	}
	trxID := v.Receipt.Record.TransactionID

	rec, env := do(t, router, http.MethodGet, "/api/v1/receipts/"+trxID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: status %d", rec.Code)
	}
	var receipt handler.ReceiptView
	if err := json.Unmarshal(env.Data, &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Record.TransactionID != trxID || receipt.DonorDisplay != "Budi" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	rec, env = do(t, router, http.MethodGet, "/api/v1/campaigns/cmp-1/donations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("donations: status %d", rec.Code)
	}
	var donations handler.DonationsView
	if err := json.Unmarshal(env.Data, &donations); err != nil {
		t.Fatalf("decode donations: %v", err)
	}
	if donations.Count != 1 || donations.Total != 50000 || donations.TotalText != "Rp 50.000" {
		t.Fatalf("unexpected donations %+v", donations)
	}
}

func TestAnonymousSummary(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)

	v := toPayment(t, router, id, checkout.DonorDetails{Name: "Siti", IsAnonymous: true})
	if v.Summary.DonorDisplay != "Anonim" {
		t.Fatalf("donor display = %q", v.Summary.DonorDisplay)
	}
}

func TestCreateWithoutCampaign(t *testing.T) {
	router := newTestRouter(t, "")

	rec, env := do(t, router, http.MethodPost, "/api/v1/checkouts", model.Seed{})
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "ERR_MISSING_CONTEXT" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdvanceBelowMinimum(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)

	mustOK(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/amount", handler.AmountRequest{Custom: "5.000"})
	rec, env := do(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/advance", nil)

	if rec.Code != http.StatusUnprocessableEntity || env.Error == nil {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if env.Error.Code != "ERR_VALIDATION" || env.Error.Field != "amount" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	v := view(t, env)
	if v.Step != checkout.StepForm || v.Form.CustomAmount != "5000" || v.Form.CanAdvance {
		t.Fatalf("unexpected view after rejection %+v", v.Form)
	}
}

func TestAdvanceAboveMaximum(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)

	mustOK(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/amount", handler.AmountRequest{Custom: "Rp 9.000.000.000.000.000.000"})
	rec, env := do(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/advance", nil)

	if rec.Code != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Field != "amount" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	v := view(t, env)
	if v.Step != checkout.StepForm || v.Form.CanAdvance || v.Form.MaxAmount != 10000000000 {
		t.Fatalf("unexpected view after rejection %+v", v.Form)
	}
}

func TestCardChannelUnavailable(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)
	base := "/api/v1/checkouts/" + id

	mustOK(t, router, http.MethodPost, base+"/method", handler.MethodRequest{Method: model.PaymentMethodCard})
	v := toPayment(t, router, id, checkout.DonorDetails{Name: "Budi"})
	if !v.Payment.Channel.Unavailable {
		t.Fatal("card channel should be unavailable")
	}

	rec, env := do(t, router, http.MethodPost, base+"/confirm", nil)
	if rec.Code != http.StatusConflict || env.Error.Code != "ERR_CHANNEL_UNAVAILABLE" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestPledgeFrozenAfterForm(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)
	toPayment(t, router, id, checkout.DonorDetails{Name: "Budi"})

	rec, env := do(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/amount", handler.AmountRequest{Preset: 100000})
	if rec.Code != http.StatusConflict || env.Error.Code != "ERR_PLEDGE_FROZEN" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if v := view(t, env); v.Summary.Fee.Amount != 50000 {
		t.Fatalf("amount changed to %d", v.Summary.Fee.Amount)
	}
}

func TestSettlementQR(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)
	base := "/api/v1/checkouts/" + id

	rec, env := do(t, router, http.MethodGet, base+"/options/0/qr", nil)
	if rec.Code != http.StatusConflict || env.Error.Code != "ERR_INVALID_TRANSITION" {
		t.Fatalf("QR in form step: %d %s", rec.Code, rec.Body.String())
	}

	toPayment(t, router, id, checkout.DonorDetails{Name: "Budi"})

	rec, _ = do(t, router, http.MethodGet, base+"/options/0/qr", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected QR response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatal("QR body is not a PNG")
	}

	rec, _ = do(t, router, http.MethodGet, base+"/options/9/qr", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("out of range option: status %d", rec.Code)
	}
}

func TestAbandonCheckout(t *testing.T) {
	router := newTestRouter(t, "")
	id := create(t, router)

	v := mustOK(t, router, http.MethodDelete, "/api/v1/checkouts/"+id, nil)
	if v.Step != checkout.StepAbandoned || !v.Terminal {
		t.Fatalf("unexpected view %+v", v)
	}

	rec, env := do(t, router, http.MethodGet, "/api/v1/checkouts/"+id, nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != "ERR_NOT_FOUND" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestReceiptNotFound(t *testing.T) {
	router := newTestRouter(t, "")

	rec, env := do(t, router, http.MethodGet, "/api/v1/receipts/TRXMISSING", nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != "ERR_NOT_FOUND" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidJSON(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkouts", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	router := newTestRouter(t, "secret")

	rec, _ := do(t, router, http.MethodPost, "/api/v1/checkouts", model.Seed{CampaignID: "cmp-1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func health(t *testing.T, router http.Handler) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return body
}

func TestHealthReportsConfirmations(t *testing.T) {
	router := newTestRouter(t, "")

	body := health(t, router)
	if body["status"] != "healthy" || body["confirmations"] != float64(0) {
		t.Fatalf("unexpected health %v", body)
	}

	id := create(t, router)
	toPayment(t, router, id, checkout.DonorDetails{Name: "Dewi"})
	v := mustOK(t, router, http.MethodPost, "/api/v1/checkouts/"+id+"/confirm", nil)
	deadline := time.Now().Add(2 * time.Second)
	for v.Step != checkout.StepSuccess {
		if time.Now().After(deadline) {
			t.Fatalf("checkout stuck in %s", v.Step)
		}
		time.Sleep(5 * time.Millisecond)
		v = mustOK(t, router, http.MethodGet, "/api/v1/checkouts/"+id, nil)
	}

	body = health(t, router)
	if body["confirmations"] != float64(1) {
		t.Fatalf("unexpected health after confirmation %v", body)
	}
}
