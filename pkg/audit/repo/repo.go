package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	AdmissionEvent() IAdmissionEvent
}

type Repo struct {
	auditDB *gorm.DB
}

func NewRepo(auditDB *gorm.DB) IRepo {
	return &Repo{
		auditDB: auditDB,
	}
}

func (r *Repo) AdmissionEvent() IAdmissionEvent {
	return NewAdmissionEventSQLRepo(r.auditDB)
}
