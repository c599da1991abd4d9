// Package httpgateway exposes the admission service over JSON/HTTP.
//
// Money travels as decimal strings; the decimal codec also accepts plain JSON
// numbers on input.
package httpgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/exposure"
	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Admitter decides a single order. *admission.Service implements it.
type Admitter interface {
	Admit(ctx context.Context, req model.OrderRequest) model.AdmissionResult
}

// ExposureReader is the read-only view of the ledger. *exposure.Ledger implements it.
type ExposureReader interface {
	Exposure(symbol string) decimal.Decimal
	Snapshot() []exposure.Entry
}

type Handler struct {
	admitter Admitter
	ledger   ExposureReader
	ids      idgen.Generator
	logger   *logging.Logger
}

func NewHandler(admitter Admitter, ledger ExposureReader, ids idgen.Generator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		admitter: admitter,
		ledger:   ledger,
		ids:      ids,
		logger:   logger,
	}
}

// OrderRequest is the JSON body for POST /api/order. Side accepts BUY/SELL and
// Compra/Venda.
type OrderRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type OrderResponse struct {
	OrderID         string          `json:"orderId"`
	Accepted        bool            `json:"accepted"`
	Message         string          `json:"message"`
	CurrentExposure decimal.Decimal `json:"currentExposure"`
}

type ExposureResponse struct {
	Symbol      string          `json:"symbol"`
	NetExposure decimal.Decimal `json:"netExposure"`
}

// CreateOrder handles POST /api/order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := model.OrderRequest{
		Symbol:   strings.TrimSpace(body.Symbol),
		Side:     model.ParseSide(body.Side),
		Quantity: body.Quantity,
		Price:    body.Price,
	}

	ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	res := h.admitter.Admit(ctx, req)

	switch res.RejectKind {
	case model.RejectKindValidation:
		writeError(w, res.Reason, http.StatusBadRequest)
		return
	case model.RejectKindInternal:
		writeError(w, res.Reason, http.StatusInternalServerError)
		return
	}

	resp := OrderResponse{
		OrderID:         h.ids.Next(),
		Accepted:        res.Accepted,
		Message:         res.Reason,
		CurrentExposure: res.ResultingExposure,
	}
	if res.Accepted {
		resp.Message = fmt.Sprintf("order accepted, %s exposure %s", req.Symbol, res.ResultingExposure.StringFixed(2))
	}

	h.logger.Debug(ctx, "http order decided",
		zap.String("order_id", resp.OrderID),
		zap.Bool("accepted", resp.Accepted),
	)
	writeJSON(w, http.StatusOK, resp)
}

// ListExposure handles GET /api/exposure
func (h *Handler) ListExposure(w http.ResponseWriter, r *http.Request) {
	entries := h.ledger.Snapshot()
	resp := make([]ExposureResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ExposureResponse{Symbol: e.Symbol, NetExposure: e.NetExposure})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetExposure handles GET /api/exposure/{symbol}. Unknown symbols report zero.
func (h *Handler) GetExposure(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	writeJSON(w, http.StatusOK, ExposureResponse{
		Symbol:      symbol,
		NetExposure: h.ledger.Exposure(symbol),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
