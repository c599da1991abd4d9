package admission

import (
	"context"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
)

// Recorder observes every decision after it is final. Recorders must not block;
// a slow recorder delays the caller, never the ledger.
type Recorder interface {
	Record(ctx context.Context, req model.OrderRequest, res model.AdmissionResult, elapsed time.Duration)
}
