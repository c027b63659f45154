package dto

import (
	"encoding/json"

	"github.com/noah-isme/school-points-api/internal/models"
)

// AuditListRequest defines filters for retrieving audit entries.
type AuditListRequest struct {
	Limit       int
	Action      string
	PerformerID string
}

// AuditLogResponse serializes an audit entry with the performer's display name.
type AuditLogResponse struct {
	ID            string          `json:"id"`
	Action        string          `json:"action"`
	PerformerID   string          `json:"performer_id"`
	PerformerName string          `json:"performer_name,omitempty"`
	TargetTable   string          `json:"target_table"`
	TargetID      string          `json:"target_id"`
	OldValue      json.RawMessage `json:"old_value"`
	NewValue      json.RawMessage `json:"new_value"`
	Timestamp     int64           `json:"timestamp"`
}

// NewAuditLogResponse converts a model into an audit DTO.
func NewAuditLogResponse(entry models.AuditLog, performerName string) AuditLogResponse {
	return AuditLogResponse{
		ID:            entry.ID,
		Action:        entry.Action,
		PerformerID:   entry.PerformerID,
		PerformerName: performerName,
		TargetTable:   entry.TargetTable,
		TargetID:      entry.TargetID,
		OldValue:      rawJSON(entry.OldValue),
		NewValue:      rawJSON(entry.NewValue),
		Timestamp:     entry.Timestamp,
	}
}
