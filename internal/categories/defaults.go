// Package categories manages a user's spending categories.
package categories

import "github.com/cleared-dev/tally/internal/model"

// DefaultColor is used when a category is created without one.
const DefaultColor = "#007bff"

// Defaults returns the categories every new user starts with. Their names
// line up with the built-in categorization patterns.
func Defaults() []model.Category {
	return []model.Category{
		{Name: "Food & Dining", Color: "#28a745"},
		{Name: "Transportation", Color: "#17a2b8"},
		{Name: "Shopping", Color: "#ffc107"},
		{Name: "Entertainment", Color: "#e83e8c"},
		{Name: "Bills & Utilities", Color: "#dc3545"},
		{Name: "Healthcare", Color: "#6f42c1"},
		{Name: "Education", Color: "#fd7e14"},
		{Name: "Travel", Color: "#20c997"},
		{Name: "Income", Color: "#198754"},
		{Name: "Transfer", Color: "#6c757d"},
	}
}
