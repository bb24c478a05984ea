package category

import (
	"time"

	"github.com/google/uuid"
)

// Scope says who owns a category: one user or one team.
type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeTeam     Scope = "team"
)

// Category mirrors a row of the categories table. ReceiptCount is derived
// server-side and never written by the client.
type Category struct {
	ID           uuid.UUID `json:"id"`
	Scope        Scope     `json:"scope"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Icon         string    `json:"icon"`
	ReceiptCount int       `json:"receipt_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Defaults is the category set every new account starts with.
func Defaults() []Category {
	return []Category{
		{Name: "Groceries", Color: "#4CAF50", Icon: "cart"},
		{Name: "Dining", Color: "#FF9800", Icon: "restaurant"},
		{Name: "Transport", Color: "#2196F3", Icon: "car"},
		{Name: "Travel", Color: "#9C27B0", Icon: "plane"},
		{Name: "Office", Color: "#607D8B", Icon: "briefcase"},
		{Name: "Utilities", Color: "#FFC107", Icon: "bolt"},
		{Name: "Health", Color: "#F44336", Icon: "heart"},
		{Name: "Other", Color: "#9E9E9E", Icon: "tag"},
	}
}
