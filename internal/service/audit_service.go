package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/school-points-api/internal/dto"
	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/repository"
)

const defaultAuditLimit = 100

// Audit actions.
const (
	ActionCreateEvaluation     = "create_evaluation"
	ActionDeleteEvaluation     = "delete_evaluation"
	ActionCreateStudent        = "create_student"
	ActionUpdateStudent        = "update_student"
	ActionDeleteStudent        = "delete_student"
	ActionDeleteStudentCascade = "delete_student_cascade"
	ActionChangeStudentStatus  = "change_student_status"
	ActionCreateCategory       = "create_category"
	ActionUpdateCategory       = "update_category"
	ActionDeleteCategory       = "delete_category"
	ActionUpdateUserRole       = "update_user_role"
	ActionUpdateUserStatus     = "update_user_status"
)

// AuditEntry captures the details required to persist an audit record.
type AuditEntry struct {
	Action      string
	PerformerID string
	TargetTable string
	TargetID    string
	OldValue    interface{}
	NewValue    interface{}
}

// AuditRecorder persists audit records inside the caller's transaction and
// fans them out once the transaction has committed.
type AuditRecorder interface {
	Record(ctx context.Context, tx repository.Store, entry AuditEntry) (models.AuditLog, error)
	Publish(ctx context.Context, entries ...models.AuditLog)
}

// AuditService exposes the audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, viewer *Viewer, req dto.AuditListRequest) ([]dto.AuditLogResponse, error)
}

type auditService struct {
	store   repository.Store
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	now     func() int64
}

// NewAuditService constructs the audit trail service. natsConn may be nil.
func NewAuditService(store repository.Store, natsConn *nats.Conn, subject string, logger zerolog.Logger) AuditService {
	return &auditService{
		store:   store,
		nats:    natsConn,
		subject: strings.TrimSpace(subject),
		logger:  logger.With().Str("component", "audit_service").Logger(),
		now:     models.NowMillis,
	}
}

func (s *auditService) Record(ctx context.Context, tx repository.Store, entry AuditEntry) (models.AuditLog, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return models.AuditLog{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.TargetTable) == "" {
		return models.AuditLog{}, fmt.Errorf("target table is required")
	}
	if tx == nil {
		tx = s.store
	}

	oldValue, err := snapshotJSON(entry.OldValue)
	if err != nil {
		return models.AuditLog{}, fmt.Errorf("encode old value: %w", err)
	}
	newValue, err := snapshotJSON(entry.NewValue)
	if err != nil {
		return models.AuditLog{}, fmt.Errorf("encode new value: %w", err)
	}

	model := models.AuditLog{
		Action:      entry.Action,
		PerformerID: entry.PerformerID,
		TargetTable: entry.TargetTable,
		TargetID:    entry.TargetID,
		OldValue:    oldValue,
		NewValue:    newValue,
		Timestamp:   s.now(),
	}

	if err := tx.AuditLogs().Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to persist audit log")
		return models.AuditLog{}, err
	}

	return model, nil
}

func (s *auditService) Publish(ctx context.Context, entries ...models.AuditLog) {
	if s.nats == nil || s.subject == "" {
		return
	}
	for _, entry := range entries {
		payload, err := json.Marshal(dto.NewAuditLogResponse(entry, ""))
		if err != nil {
			s.logger.Warn().Err(err).Str("audit_id", entry.ID).Msg("failed to encode audit event")
			continue
		}
		if err := s.nats.Publish(s.subject, payload); err != nil {
			s.logger.Warn().Err(err).Str("audit_id", entry.ID).Msg("failed to publish audit event")
		}
	}
}

func (s *auditService) List(ctx context.Context, viewer *Viewer, req dto.AuditListRequest) ([]dto.AuditLogResponse, error) {
	if !viewer.IsAdmin() {
		return []dto.AuditLogResponse{}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	entries, err := s.store.AuditLogs().List(ctx, repository.AuditLogFilter{
		Limit:       limit,
		Action:      strings.TrimSpace(req.Action),
		PerformerID: strings.TrimSpace(req.PerformerID),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	performerIDs := make([]string, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		if _, ok := seen[entry.PerformerID]; ok || entry.PerformerID == "" {
			continue
		}
		seen[entry.PerformerID] = struct{}{}
		performerIDs = append(performerIDs, entry.PerformerID)
	}

	names := map[string]string{}
	if len(performerIDs) > 0 {
		users, err := s.store.Users().ListByIDs(ctx, performerIDs)
		if err != nil {
			return nil, fmt.Errorf("load performers: %w", err)
		}
		for _, user := range users {
			names[user.ID] = user.Name
		}
	}

	responses := make([]dto.AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditLogResponse(entry, names[entry.PerformerID]))
	}
	return responses, nil
}

func snapshotJSON(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}
