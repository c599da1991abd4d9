package model

import "github.com/shopspring/decimal"

type RejectKind string

const (
	RejectKindNone       RejectKind = ""
	RejectKindValidation RejectKind = "validation"
	RejectKindLimit      RejectKind = "limit"
	RejectKindInternal   RejectKind = "internal"
)

// AdmissionResult is the decision for a single OrderRequest. ResultingExposure is
// the stored exposure after an accept, or the exposure the order would have
// produced after a limit reject. It is zero for validation and internal rejects.
type AdmissionResult struct {
	Accepted          bool
	ResultingExposure decimal.Decimal
	Notional          decimal.Decimal
	Reason            string
	RejectKind        RejectKind

	// Cause is the error behind a rejection, nil on accept. Adapters match it
	// with errors.Is to pick transport-specific reject codes.
	Cause error
}
