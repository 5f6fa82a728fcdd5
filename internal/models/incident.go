package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportType - категория инцидента из закрытого перечня
type ReportType string

const (
	TypeSuspicious ReportType = "suspicious"
	TypeTheft      ReportType = "theft"
	TypeVandalism  ReportType = "vandalism"
	TypeAssault    ReportType = "assault"
	TypeNoise      ReportType = "noise"
	TypeEmergency  ReportType = "emergency"
	TypeRoadHazard ReportType = "road_hazard"
	TypeOther      ReportType = "other"
)

// IsValid проверяет, что категория входит в закрытый перечень
func (t ReportType) IsValid() bool {
	switch t {
	case TypeSuspicious, TypeTheft, TypeVandalism, TypeAssault,
		TypeNoise, TypeEmergency, TypeRoadHazard, TypeOther:
		return true
	}
	return false
}

// ReportStatus - статус модерации инцидента
type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusApproved ReportStatus = "approved"
	StatusRejected ReportStatus = "rejected"
)

// IsValid проверяет, что статус входит в закрытый перечень
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo сообщает, допустим ли переход статуса.
// Разрешены только pending -> approved и pending -> rejected,
// approved и rejected - терминальные состояния.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	return s == StatusPending && (next == StatusApproved || next == StatusRejected)
}

type Incident struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Type        ReportType   `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
