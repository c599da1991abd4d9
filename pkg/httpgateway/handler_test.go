package httpgateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission"
	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/exposure"
	"github.com/joripage/exposure-gate/pkg/httpgateway"
	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/shopspring/decimal"
)

func newTestEnv(t *testing.T) (*exposure.Ledger, http.Handler) {
	t.Helper()
	cfg := admission.DefaultConfig()
	cfg.AllowedSymbols = []string{"PETR4", "VALE3", "VIIA4"}

	ledger := exposure.NewLedger()
	svc := admission.NewService(ledger, cfg)
	h := httpgateway.NewHandler(svc, ledger, idgen.NewSequence("ORD"), nil)
	return ledger, httpgateway.NewRouter(h, []string{"http://localhost:3000"})
}

func doOrder(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/order", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) httpgateway.OrderResponse {
	t.Helper()
	var resp httpgateway.OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestCreateOrder_Accepted(t *testing.T) {
	ledger, router := newTestEnv(t)

	w := doOrder(t, router, `{"symbol":"PETR4","side":"Compra","quantity":1000,"price":"100.00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeOrder(t, w)
	if resp.OrderID != "ORD-000001" || !resp.Accepted {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.CurrentExposure.Equal(decimal.NewFromInt(100_000)) {
		t.Errorf("unexpected exposure %s", resp.CurrentExposure)
	}
	if !strings.Contains(resp.Message, "PETR4") {
		t.Errorf("message should name the symbol: %q", resp.Message)
	}
	if !ledger.Exposure("PETR4").Equal(decimal.NewFromInt(100_000)) {
		t.Errorf("ledger not updated")
	}
}

func TestCreateOrder_LimitRejected(t *testing.T) {
	ledger, router := newTestEnv(t)
	ctx := context.Background()
	svc := admission.NewService(ledger, admission.DefaultConfig())
	if res := svc.Admit(ctx, model.OrderRequest{Symbol: "VALE3", Side: model.OrderSideBuy, Quantity: decimal.NewFromInt(99_900), Price: decimal.NewFromInt(1000)}); !res.Accepted {
		t.Fatalf("seed rejected: %s", res.Reason)
	}

	w := doOrder(t, router, `{"symbol":"VALE3","side":"BUY","quantity":2000,"price":100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("limit rejects are decisions, expected 200, got %d", w.Code)
	}
	resp := decodeOrder(t, w)
	if resp.Accepted || resp.OrderID == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Message, "exposure limit exceeded") {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if !ledger.Exposure("VALE3").Equal(decimal.NewFromInt(99_900_000)) {
		t.Errorf("rejected order changed exposure: %s", ledger.Exposure("VALE3"))
	}
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	_, router := newTestEnv(t)

	cases := map[string]string{
		"bad symbol": `{"symbol":"AAPL","side":"BUY","quantity":1,"price":1}`,
		"bad side":   `{"symbol":"PETR4","side":"HOLD","quantity":1,"price":1}`,
		"zero qty":   `{"symbol":"PETR4","side":"BUY","quantity":0,"price":1}`,
		"high price": `{"symbol":"PETR4","side":"BUY","quantity":1,"price":1000.01}`,
		"bad json":   `{"symbol":`,
	}
	for name, body := range cases {
		w := doOrder(t, router, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
			continue
		}
		var e map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e["error"] == "" {
			t.Errorf("%s: expected error body, got %q", name, w.Body.String())
		}
	}
}

func TestCreateOrder_OutOfRangeExponent(t *testing.T) {
	ledger, router := newTestEnv(t)

	bodies := []string{
		`{"symbol":"PETR4","side":"BUY","quantity":"1e30000000","price":10}`,
		`{"symbol":"PETR4","side":"BUY","quantity":1,"price":"1e-30000000"}`,
		`{"symbol":"PETR4","side":"BUY","quantity":1e30000000,"price":10}`,
	}
	for _, body := range bodies {
		done := make(chan *httptest.ResponseRecorder, 1)
		go func() { done <- doOrder(t, router, body) }()

		select {
		case w := <-done:
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d: %s", body, w.Code, w.Body.String())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: request did not complete", body)
		}
	}
	if len(ledger.Snapshot()) != 0 {
		t.Errorf("rejected orders must not touch the ledger")
	}
}

func TestCreateOrder_IDsOnlyForDecisions(t *testing.T) {
	_, router := newTestEnv(t)

	doOrder(t, router, `{"symbol":"AAPL","side":"BUY","quantity":1,"price":1}`)
	resp := decodeOrder(t, doOrder(t, router, `{"symbol":"VIIA4","side":"Venda","quantity":1,"price":1}`))
	if resp.OrderID != "ORD-000001" {
		t.Errorf("validation rejects must not consume ids, got %s", resp.OrderID)
	}
}

func TestExposureEndpoints(t *testing.T) {
	_, router := newTestEnv(t)
	doOrder(t, router, `{"symbol":"VIIA4","side":"SELL","quantity":10,"price":2}`)
	doOrder(t, router, `{"symbol":"PETR4","side":"BUY","quantity":10,"price":3}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/exposure", nil))
	var all []httpgateway.ExposureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 || all[0].Symbol != "PETR4" || !all[1].NetExposure.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("unexpected snapshot %+v", all)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/exposure/VALE3", nil))
	var one httpgateway.ExposureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if one.Symbol != "VALE3" || !one.NetExposure.IsZero() {
		t.Errorf("unexpected exposure %+v", one)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/order", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
}
