package models

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"
)

// PointCategory is a named bucket of points with ordered sub-category labels.
type PointCategory struct {
	ID               string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name             string   `gorm:"size:255;index;not null" json:"name"`
	SubCategoriesRaw string   `gorm:"column:sub_categories;type:text" json:"-"`
	E2ETag           *string  `gorm:"column:e2e_tag;size:128;index" json:"e2e_tag,omitempty"`
	SubCategories    []string `gorm:"-" json:"sub_categories"`
}

// TableName keeps the collection name stable.
func (PointCategory) TableName() string {
	return "point_categories"
}

// BeforeCreate assigns an identifier when missing.
func (c *PointCategory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// BeforeSave encodes the ordered label list.
func (c *PointCategory) BeforeSave(tx *gorm.DB) error {
	c.SubCategoriesRaw = EncodeLabels(c.SubCategories)
	return nil
}

// AfterFind hydrates the label list after retrieval.
func (c *PointCategory) AfterFind(tx *gorm.DB) error {
	c.SubCategories = DecodeLabels(c.SubCategoriesRaw)
	return nil
}

// HasSubCategory reports whether label is one of the category's sub-categories.
func (c PointCategory) HasSubCategory(label string) bool {
	for _, existing := range c.SubCategories {
		if existing == label {
			return true
		}
	}
	return false
}

// EncodeLabels serialises labels preserving order; blanks are dropped.
func EncodeLabels(labels []string) string {
	cleaned := CleanLabels(labels)
	payload, err := json.Marshal(cleaned)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

// DecodeLabels parses a stored label list.
func DecodeLabels(raw string) []string {
	labels := []string{}
	if strings.TrimSpace(raw) == "" {
		return labels
	}
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return []string{}
	}
	return labels
}

// CleanLabels trims labels and removes blanks while keeping order.
func CleanLabels(labels []string) []string {
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
