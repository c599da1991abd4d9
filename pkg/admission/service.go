package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/admission/rule"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the atomic check-and-update primitive the service relies on.
// *exposure.Ledger implements it.
type Ledger interface {
	EvaluateAndApply(symbol string, delta, limit decimal.Decimal) (bool, decimal.Decimal)
}

// Service turns order requests into admission decisions. It holds no mutable
// state of its own; all exposure lives in the Ledger.
type Service struct {
	cfg       Config
	ledger    Ledger
	rules     []rule.Rule
	recorders []Recorder
	logger    *logging.Logger
}

type Option func(*Service)

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorders = append(s.recorders, r)
	}
}

func NewService(ledger Ledger, cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()

	s := &Service{
		cfg:    cfg,
		ledger: ledger,
		rules: []rule.Rule{
			rule.NewSymbolRule(cfg.AllowedSymbols),
			rule.SideRule{},
			rule.NewQuantityRule(cfg.MaxQuantity),
			rule.NewPriceRule(cfg.MaxPrice, cfg.PriceTick),
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Config() Config {
	return s.cfg
}

// Admit validates req and, when valid, applies its signed notional to the ledger
// in a single atomic call. Rejected requests never change stored exposure.
func (s *Service) Admit(ctx context.Context, req model.OrderRequest) model.AdmissionResult {
	start := time.Now()
	res := s.decide(ctx, &req)
	elapsed := time.Since(start)

	s.log(ctx, &req, &res)
	bounded := req.Bounded()
	for _, r := range s.recorders {
		s.record(ctx, r, bounded, res, elapsed)
	}
	return res
}

func (s *Service) decide(ctx context.Context, req *model.OrderRequest) (res model.AdmissionResult) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "panic while admitting order",
				zap.String("cl_ord_id", req.ClOrdID),
				zap.String("symbol", req.Symbol),
				zap.Any("panic", p),
			)
			res = model.AdmissionResult{
				Accepted:   false,
				Reason:     ErrInternal.Error(),
				RejectKind: model.RejectKindInternal,
				Cause:      ErrInternal,
			}
		}
	}()

	if err := rule.CheckAll(s.rules, req); err != nil {
		return model.AdmissionResult{
			Accepted:   false,
			Reason:     err.Error(),
			RejectKind: model.RejectKindValidation,
			Cause:      err,
		}
	}

	notional := req.Notional()
	delta := req.SignedNotional()
	accepted, resulting := s.ledger.EvaluateAndApply(req.Symbol, delta, s.cfg.ExposureLimit)
	if accepted {
		return model.AdmissionResult{
			Accepted:          true,
			ResultingExposure: resulting,
			Notional:          notional,
		}
	}

	cause := limitError(req.Symbol, resulting.Sub(delta), notional, resulting, s.cfg.ExposureLimit)
	return model.AdmissionResult{
		Accepted:          false,
		ResultingExposure: resulting,
		Notional:          notional,
		Reason:            cause.Error(),
		RejectKind:        model.RejectKindLimit,
		Cause:             cause,
	}
}

func limitError(symbol string, current, notional, resulting, limit decimal.Decimal) error {
	return fmt.Errorf("%w for %s: current exposure %s, order notional %s, resulting exposure %s, limit %s",
		ErrExposureLimit, symbol,
		current.StringFixed(2), notional.StringFixed(2), resulting.StringFixed(2), limit.StringFixed(2),
	)
}

func (s *Service) log(ctx context.Context, req *model.OrderRequest, res *model.AdmissionResult) {
	fields := []zap.Field{
		zap.String("cl_ord_id", req.ClOrdID),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", model.CompactString(req.Quantity)),
		zap.String("price", model.CompactString(req.Price)),
	}

	switch res.RejectKind {
	case model.RejectKindNone:
		s.logger.Info(ctx, "order accepted",
			append(fields, zap.String("exposure", res.ResultingExposure.String()))...)
	case model.RejectKindLimit:
		s.logger.Warn(ctx, "order rejected",
			append(fields,
				zap.String("notional", res.Notional.String()),
				zap.String("resulting_exposure", res.ResultingExposure.String()),
				zap.String("limit", s.cfg.ExposureLimit.String()),
				zap.String("reason", res.Reason),
			)...)
	case model.RejectKindValidation:
		s.logger.Info(ctx, "order failed validation", append(fields, zap.String("reason", res.Reason))...)
	}
}

func (s *Service) record(ctx context.Context, r Recorder, req model.OrderRequest, res model.AdmissionResult, elapsed time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "admission recorder panicked", zap.Any("panic", p))
		}
	}()
	r.Record(ctx, req, res, elapsed)
}
