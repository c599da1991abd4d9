package repo

import (
	"context"

	"github.com/joripage/exposure-gate/pkg/audit"
)

type IAdmissionEvent interface {
	BulkCreate(ctx context.Context, records []*audit.AdmissionEvent) ([]*audit.AdmissionEvent, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]*audit.AdmissionEvent, error)
}
