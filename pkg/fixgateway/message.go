package fixgateway

import (
	"errors"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/admission/rule"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix42er "github.com/quickfixgo/fix42/executionreport"
	fix42nos "github.com/quickfixgo/fix42/newordersingle"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/shopspring/decimal"
)

var (
	SideMapping = map[enum.Side]model.OrderSide{
		enum.Side_BUY:  model.OrderSideBuy,
		enum.Side_SELL: model.OrderSideSell,
	}

	fixSideMapping = map[model.OrderSide]enum.Side{
		model.OrderSideBuy:  enum.Side_BUY,
		model.OrderSideSell: enum.Side_SELL,
	}
)

// FIX.4.2 has no OTHER reason, "0" is broker option there.
const ordRejReasonBrokerOption = enum.OrdRejReason("0")

// ExecReport is the version-independent content of an execution report.
type ExecReport struct {
	OrderID  string
	ExecID   string
	ClOrdID  string
	Symbol   string
	Side     enum.Side
	OrderQty decimal.Decimal
	Price    decimal.Decimal
	Accepted bool
	Text     string
	Reason   enum.OrdRejReason
}

func (r *ExecReport) execType() enum.ExecType {
	if r.Accepted {
		return enum.ExecType_NEW
	}
	return enum.ExecType_REJECTED
}

func (r *ExecReport) ordStatus() enum.OrdStatus {
	if r.Accepted {
		return enum.OrdStatus_NEW
	}
	return enum.OrdStatus_REJECTED
}

func (r *ExecReport) leavesQty() decimal.Decimal {
	if r.Accepted {
		return r.OrderQty
	}
	return decimal.Zero
}

func sideOf(s enum.Side) model.OrderSide {
	if side, ok := SideMapping[s]; ok {
		return side
	}
	return model.OrderSide(s)
}

func fixSide(req *model.OrderRequest, raw enum.Side) enum.Side {
	if s, ok := fixSideMapping[req.Side]; ok {
		return s
	}
	return raw
}

// Missing fields are left zero so the admission rules reject them with a
// readable reason instead of a session level reject.
func orderRequestFromFIX44(msg fix44nos.NewOrderSingle) (model.OrderRequest, enum.Side) {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	qty, _ := msg.GetOrderQty()
	price, _ := msg.GetPrice()

	return model.OrderRequest{
		ClOrdID:  clOrdID,
		Symbol:   symbol,
		Side:     sideOf(side),
		Quantity: qty,
		Price:    price,
	}, side
}

func orderRequestFromFIX42(msg fix42nos.NewOrderSingle) (model.OrderRequest, enum.Side) {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	qty, _ := msg.GetOrderQty()
	price, _ := msg.GetPrice()

	return model.OrderRequest{
		ClOrdID:  clOrdID,
		Symbol:   symbol,
		Side:     sideOf(side),
		Quantity: qty,
		Price:    price,
	}, side
}

// OrdRejReason maps a rejected result onto tag 103.
func OrdRejReason(res model.AdmissionResult, fix42 bool) enum.OrdRejReason {
	switch {
	case res.RejectKind == model.RejectKindLimit:
		return enum.OrdRejReason_ORDER_EXCEEDS_LIMIT
	case errors.Is(res.Cause, rule.ErrInvalidSymbol):
		return enum.OrdRejReason_UNKNOWN_SYMBOL
	case fix42:
		return ordRejReasonBrokerOption
	case errors.Is(res.Cause, rule.ErrInvalidQuantity):
		return enum.OrdRejReason_INCORRECT_QUANTITY
	default:
		return enum.OrdRejReason_OTHER
	}
}

// scaleOf returns the number of fractional digits d carries, at least floor.
func scaleOf(d decimal.Decimal, floor int32) int32 {
	if s := -d.Exponent(); s > floor {
		return s
	}
	return floor
}

// newExecReport echoes req back. Out-of-range quantity or price is echoed as zero.
func newExecReport(orderID, execID string, in *model.OrderRequest, rawSide enum.Side, res model.AdmissionResult, fix42 bool) *ExecReport {
	bounded := in.Bounded()
	req := &bounded
	r := &ExecReport{
		OrderID:  orderID,
		ExecID:   execID,
		ClOrdID:  req.ClOrdID,
		Symbol:   req.Symbol,
		Side:     fixSide(req, rawSide),
		OrderQty: req.Quantity,
		Price:    req.Price,
		Accepted: res.Accepted,
	}
	if !res.Accepted {
		r.Text = res.Reason
		r.Reason = OrdRejReason(res, fix42)
	}
	return r
}

func (r *ExecReport) ToFIX44() fix44er.ExecutionReport {
	msg := fix44er.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecType(r.execType()),
		field.NewOrdStatus(r.ordStatus()),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.leavesQty(), scaleOf(r.leavesQty(), 0)),
		field.NewCumQty(decimal.Zero, 2),
		field.NewAvgPx(decimal.Zero, 2),
	)
	msg.SetClOrdID(r.ClOrdID)
	msg.SetSymbol(r.Symbol)
	msg.SetOrderQty(r.OrderQty, scaleOf(r.OrderQty, 0))
	msg.SetPrice(r.Price, scaleOf(r.Price, 2))
	if !r.Accepted {
		msg.SetText(r.Text)
		msg.SetOrdRejReason(r.Reason)
	}
	return msg
}

func (r *ExecReport) ToFIX42() fix42er.ExecutionReport {
	msg := fix42er.New(
		field.NewOrderID(r.OrderID),
		field.NewExecID(r.ExecID),
		field.NewExecTransType(enum.ExecTransType_NEW),
		field.NewExecType(r.execType()),
		field.NewOrdStatus(r.ordStatus()),
		field.NewSymbol(r.Symbol),
		field.NewSide(r.Side),
		field.NewLeavesQty(r.leavesQty(), scaleOf(r.leavesQty(), 0)),
		field.NewCumQty(decimal.Zero, 2),
		field.NewAvgPx(decimal.Zero, 2),
	)
	msg.SetClOrdID(r.ClOrdID)
	msg.SetOrderQty(r.OrderQty, scaleOf(r.OrderQty, 0))
	msg.SetPrice(r.Price, scaleOf(r.Price, 2))
	if !r.Accepted {
		msg.SetText(r.Text)
		msg.SetOrdRejReason(r.Reason)
	}
	return msg
}
