package audit

import (
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/shopspring/decimal"
)

// AdmissionEvent is the write-only record of one decision. Events are published
// for reporting and never replayed into the ledger.
type AdmissionEvent struct {
	EventID           string          `json:"event_id" gorm:"primaryKey;column:event_id"`
	ClOrdID           string          `json:"cl_ord_id" gorm:"column:cl_ord_id;index"`
	Symbol            string          `json:"symbol" gorm:"column:symbol;index"`
	Side              string          `json:"side" gorm:"column:side"`
	Quantity          decimal.Decimal `json:"quantity" gorm:"column:quantity;type:numeric"`
	Price             decimal.Decimal `json:"price" gorm:"column:price;type:numeric"`
	Notional          decimal.Decimal `json:"notional" gorm:"column:notional;type:numeric"`
	Accepted          bool            `json:"accepted" gorm:"column:accepted"`
	ResultingExposure decimal.Decimal `json:"resulting_exposure" gorm:"column:resulting_exposure;type:numeric"`
	RejectKind        string          `json:"reject_kind,omitempty" gorm:"column:reject_kind"`
	Reason            string          `json:"reason,omitempty" gorm:"column:reason"`
	ElapsedMicros     int64           `json:"elapsed_us" gorm:"column:elapsed_us"`
	Timestamp         time.Time       `json:"ts" gorm:"column:ts"`
}

func (AdmissionEvent) TableName() string {
	return "admission_events"
}

func NewAdmissionEvent(eventID string, req model.OrderRequest, res model.AdmissionResult, elapsed time.Duration, ts time.Time) *AdmissionEvent {
	return &AdmissionEvent{
		EventID:           eventID,
		ClOrdID:           req.ClOrdID,
		Symbol:            req.Symbol,
		Side:              string(req.Side),
		Quantity:          req.Quantity,
		Price:             req.Price,
		Notional:          res.Notional,
		Accepted:          res.Accepted,
		ResultingExposure: res.ResultingExposure,
		RejectKind:        string(res.RejectKind),
		Reason:            res.Reason,
		ElapsedMicros:     elapsed.Microseconds(),
		Timestamp:         ts,
	}
}
