package dto

import "github.com/noah-isme/school-points-api/internal/models"

// StudentListRequest captures student listing filters.
type StudentListRequest struct {
	Search string
	Status string
	Grade  *int
}

// StudentCreateRequest captures the payload for registering a student.
type StudentCreateRequest struct {
	EnglishName string  `json:"english_name" validate:"required,max=255"`
	ChineseName string  `json:"chinese_name" validate:"omitempty,max=255"`
	StudentID   string  `json:"student_id" validate:"required,max=64"`
	Grade       int     `json:"grade"`
	Status      string  `json:"status" validate:"omitempty,oneof=Enrolled 'Not Enrolled'"`
	Note        *string `json:"note" validate:"omitempty,max=2000"`
	E2ETag      *string `json:"e2e_tag" validate:"omitempty,max=128"`
	Upsert      bool    `json:"upsert"`
}

// StudentUpdateRequest captures partial student updates.
type StudentUpdateRequest struct {
	EnglishName *string `json:"english_name" validate:"omitempty,min=1,max=255"`
	ChineseName *string `json:"chinese_name" validate:"omitempty,max=255"`
	StudentID   *string `json:"student_id" validate:"omitempty,min=1,max=64"`
	Grade       *int    `json:"grade"`
	Status      *string `json:"status" validate:"omitempty,oneof=Enrolled 'Not Enrolled'"`
	Note        *string `json:"note" validate:"omitempty,max=2000"`
}

// StudentStatusRequest captures a status change.
type StudentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Enrolled 'Not Enrolled'"`
}

// StudentResponse serializes a student record.
type StudentResponse struct {
	ID          string  `json:"id"`
	EnglishName string  `json:"english_name"`
	ChineseName string  `json:"chinese_name"`
	StudentID   string  `json:"student_id"`
	Grade       int     `json:"grade"`
	Status      string  `json:"status"`
	Note        *string `json:"note,omitempty"`
	E2ETag      *string `json:"e2e_tag,omitempty"`
}

// StudentCascadeResult reports what a cascade delete removed.
type StudentCascadeResult struct {
	DeletedStudent     bool  `json:"deleted_student"`
	DeletedEvaluations int64 `json:"deleted_evaluations"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:          student.ID,
		EnglishName: student.EnglishName,
		ChineseName: student.ChineseName,
		StudentID:   student.StudentID,
		Grade:       student.Grade,
		Status:      student.Status,
		Note:        student.Note,
		E2ETag:      student.E2ETag,
	}
}

// NewStudentResponseSlice converts a list of students.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}
