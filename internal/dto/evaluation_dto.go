package dto

import "github.com/noah-isme/school-points-api/internal/models"

// EvaluationCreateRequest records one evaluation per listed student.
type EvaluationCreateRequest struct {
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Value       int      `json:"value"`
	Category    string   `json:"category" validate:"required,max=255"`
	SubCategory string   `json:"sub_category" validate:"omitempty,max=255"`
	Details     string   `json:"details" validate:"omitempty,max=5000"`
	SemesterID  string   `json:"semester_id" validate:"omitempty,max=64"`
	E2ETag      *string  `json:"e2e_tag" validate:"omitempty,max=128"`
}

// EvaluationResponse serializes a ledger row enriched with display names.
type EvaluationResponse struct {
	ID                 string  `json:"id"`
	StudentID          string  `json:"student_id"`
	StudentCode        string  `json:"student_code,omitempty"`
	StudentEnglishName string  `json:"student_english_name,omitempty"`
	StudentChineseName string  `json:"student_chinese_name,omitempty"`
	TeacherID          string  `json:"teacher_id"`
	TeacherName        string  `json:"teacher_name,omitempty"`
	IsAdmin            bool    `json:"is_admin"`
	Value              int     `json:"value"`
	Category           string  `json:"category"`
	SubCategory        string  `json:"sub_category"`
	Details            string  `json:"details"`
	Timestamp          int64   `json:"timestamp"`
	SemesterID         string  `json:"semester_id"`
	E2ETag             *string `json:"e2e_tag,omitempty"`
}

// NewEvaluationResponse converts a ledger row, enriching it when the related rows are known.
func NewEvaluationResponse(evaluation models.Evaluation, student *models.Student, teacher *models.User) EvaluationResponse {
	response := EvaluationResponse{
		ID:          evaluation.ID,
		StudentID:   evaluation.StudentID,
		TeacherID:   evaluation.TeacherID,
		Value:       evaluation.Value,
		Category:    evaluation.Category,
		SubCategory: evaluation.SubCategory,
		Details:     evaluation.Details,
		Timestamp:   evaluation.Timestamp,
		SemesterID:  evaluation.SemesterID,
		E2ETag:      evaluation.E2ETag,
	}
	if student != nil {
		response.StudentCode = student.StudentID
		response.StudentEnglishName = student.EnglishName
		response.StudentChineseName = student.ChineseName
	}
	if teacher != nil {
		response.TeacherName = teacher.Name
		response.IsAdmin = teacher.IsAdmin()
	}
	return response
}
