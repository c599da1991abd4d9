package repo

import (
	"context"

	"github.com/joripage/exposure-gate/pkg/audit"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdmissionEventSQLRepo struct {
	db *gorm.DB
}

func NewAdmissionEventSQLRepo(db *gorm.DB) *AdmissionEventSQLRepo {
	return &AdmissionEventSQLRepo{
		db: db,
	}
}

func (r *AdmissionEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// BulkCreate ignores duplicates so redelivered events are harmless.
func (r *AdmissionEventSQLRepo) BulkCreate(ctx context.Context, records []*audit.AdmissionEvent) ([]*audit.AdmissionEvent, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}

func (r *AdmissionEventSQLRepo) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*audit.AdmissionEvent, error) {
	var out []*audit.AdmissionEvent
	err := r.dbWithContext(ctx).
		Where("symbol = ?", symbol).
		Order("ts DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
