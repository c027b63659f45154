package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/school-points-api/internal/models"
	"github.com/noah-isme/school-points-api/internal/repository"
)

type fixture struct {
	db       *gorm.DB
	store    repository.Store
	audit    AuditService
	validate *validator.Validate
	admin    *Viewer
	teacher  *Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	store := repository.NewStore(db)
	f := &fixture{
		db:       db,
		store:    store,
		audit:    NewAuditService(store, nil, "", testLogger()),
		validate: validator.New(),
	}
	f.admin = f.seedUser(t, "auth-admin", "Ada Admin", models.RoleAdmin, models.UserStatusActive)
	f.teacher = f.seedUser(t, "auth-teacher", "Tom Teacher", models.RoleTeacher, models.UserStatusActive)
	return f
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func (f *fixture) seedUser(t *testing.T, authID, name, role, status string) *Viewer {
	t.Helper()
	user := models.User{AuthID: authID, Name: name, Role: role, Status: status}
	require.NoError(t, f.db.Create(&user).Error)
	return NewViewer(user)
}

func (f *fixture) seedStudent(t *testing.T, code, englishName string, grade int, status string) models.Student {
	t.Helper()
	student := models.Student{EnglishName: englishName, StudentID: code, Grade: grade, Status: status}
	require.NoError(t, f.db.Create(&student).Error)
	return student
}

func (f *fixture) seedCategory(t *testing.T, name string, subCategories ...string) models.PointCategory {
	t.Helper()
	category := models.PointCategory{Name: name, SubCategories: subCategories}
	require.NoError(t, f.db.Create(&category).Error)
	return category
}

func (f *fixture) seedEvaluation(t *testing.T, studentID, teacherID, category string, value int, timestamp int64) models.Evaluation {
	t.Helper()
	evaluation := models.Evaluation{
		StudentID: studentID,
		TeacherID: teacherID,
		Value:     value,
		Category:  category,
		Timestamp: timestamp,
	}
	require.NoError(t, f.db.Create(&evaluation).Error)
	return evaluation
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(model).Count(&total).Error)
	return total
}

func (f *fixture) auditActions(t *testing.T) []string {
	t.Helper()
	var entries []models.AuditLog
	require.NoError(t, f.db.Order("timestamp ASC").Find(&entries).Error)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type spyInvalidator struct {
	calls int
}

func (s *spyInvalidator) Invalidate(context.Context) {
	s.calls++
}
