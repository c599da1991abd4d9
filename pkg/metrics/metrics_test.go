package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/exposure"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestRecorderCountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(AdmissionsTotal.WithLabelValues("BUY", "limit"))

	req := model.OrderRequest{Symbol: "METRIC1", Side: model.OrderSideBuy}
	Recorder{}.Record(context.Background(), req, model.AdmissionResult{RejectKind: model.RejectKindLimit}, time.Microsecond)

	after := testutil.ToFloat64(AdmissionsTotal.WithLabelValues("BUY", "limit"))
	if after-before != 1 {
		t.Errorf("expected limit counter to grow by 1, got %v", after-before)
	}
}

func TestExposureCollectorReadsLedger(t *testing.T) {
	ledger := exposure.NewLedger()
	c := NewExposureCollector(ledger)

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("empty ledger must report no series, got %d", n)
	}

	ledger.EvaluateAndApply("METRIC2", decimal.NewFromInt(-2500), decimal.NewFromInt(100_000))
	if got := testutil.ToFloat64(c); got != -2500 {
		t.Errorf("expected gauge -2500, got %v", got)
	}

	ledger.EvaluateAndApply("METRIC2", decimal.NewFromInt(1000), decimal.NewFromInt(100_000))
	if got := testutil.ToFloat64(c); got != -1500 {
		t.Errorf("expected gauge to follow the ledger, got %v", got)
	}

	ledger.EvaluateAndApply("METRIC3", decimal.NewFromInt(10), decimal.NewFromInt(100_000))
	if n := testutil.CollectAndCount(c, "exposure_gate_symbol_exposure"); n != 2 {
		t.Errorf("expected one series per symbol, got %d", n)
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/teapot", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/teapot", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/teapot", "418"))

	if after-before != 1 {
		t.Errorf("expected one recorded request, got %v", after-before)
	}
}
