package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is returned when a mutation has no active viewer.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrForbidden is returned when the viewer lacks an administrative role.
	ErrForbidden = errors.New("Forbidden: Admin or super role required")
	// ErrForbiddenOwner is returned when a teacher touches another teacher's evaluation.
	ErrForbiddenOwner = errors.New("Forbidden: You can only delete your own evaluations")
	// ErrForbiddenSuper guards super-only changes on user profiles.
	ErrForbiddenSuper = errors.New("Forbidden: Super role required")
	// ErrSelfDeactivation prevents a user from locking themselves out.
	ErrSelfDeactivation = errors.New("You cannot deactivate your own account")

	ErrStudentIDExists       = errors.New("Student ID already exists")
	ErrInvalidGrade          = errors.New("Grade must be between 7 and 12")
	ErrInvalidStatus         = errors.New("Status must be Enrolled or Not Enrolled")
	ErrStudentNotFound       = errors.New("Student not found")
	ErrStudentHasEvaluations = errors.New("Cannot delete student with existing evaluations")

	ErrCategoryNotFound    = errors.New("Category not found")
	ErrCategoryExists      = errors.New("Category already exists")
	ErrSubCategoryNotFound = errors.New("Sub-category not found")

	ErrEvaluationNotFound = errors.New("Evaluation not found")
	ErrBackupNotFound     = errors.New("Backup not found")
	ErrUserNotFound       = errors.New("User not found")

	// ErrInvalidBackup is returned when an imported snapshot fails inspection.
	ErrInvalidBackup = errors.New("Invalid backup file")
	// ErrInvalidReportDate is returned for a week key that is not a Friday bucket.
	ErrInvalidReportDate = errors.New("Invalid report date")
)

// notFound maps a missing-row error to the given sentinel and wraps anything else.
func notFound(err error, sentinel error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
