package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the collection repositories and runs work atomically.
type Store interface {
	Students() StudentRepository
	Categories() CategoryRepository
	Evaluations() EvaluationRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
	Backups() BackupRepository
	// WithinTransaction runs fn against a store bound to a single transaction.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db          *gorm.DB
	students    StudentRepository
	categories  CategoryRepository
	evaluations EvaluationRepository
	users       UserRepository
	auditLogs   AuditLogRepository
	backups     BackupRepository
}

// NewStore constructs a store over the given database handle.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:          db,
		students:    NewStudentRepository(db),
		categories:  NewCategoryRepository(db),
		evaluations: NewEvaluationRepository(db),
		users:       NewUserRepository(db),
		auditLogs:   NewAuditLogRepository(db),
		backups:     NewBackupRepository(db),
	}
}

func (s *gormStore) Students() StudentRepository       { return s.students }
func (s *gormStore) Categories() CategoryRepository    { return s.categories }
func (s *gormStore) Evaluations() EvaluationRepository { return s.evaluations }
func (s *gormStore) Users() UserRepository             { return s.users }
func (s *gormStore) AuditLogs() AuditLogRepository     { return s.auditLogs }
func (s *gormStore) Backups() BackupRepository         { return s.backups }

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
