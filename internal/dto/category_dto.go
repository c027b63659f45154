package dto

import "github.com/noah-isme/school-points-api/internal/models"

// CategoryRequest captures category create and full-replace payloads.
type CategoryRequest struct {
	Name          string   `json:"name" validate:"required,max=255"`
	SubCategories []string `json:"sub_categories" validate:"omitempty,dive,max=255"`
	E2ETag        *string  `json:"e2e_tag" validate:"omitempty,max=128"`
}

// CategoryResponse serializes a point category.
type CategoryResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SubCategories []string `json:"sub_categories"`
	E2ETag        *string  `json:"e2e_tag,omitempty"`
}

// NewCategoryResponse converts a category model into a DTO.
func NewCategoryResponse(category models.PointCategory) CategoryResponse {
	subCategories := category.SubCategories
	if subCategories == nil {
		subCategories = []string{}
	}
	return CategoryResponse{
		ID:            category.ID,
		Name:          category.Name,
		SubCategories: subCategories,
		E2ETag:        category.E2ETag,
	}
}
