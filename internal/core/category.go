package core

import "github.com/google/uuid"

// OtherCategory is the label under which uncategorized (or unmatched)
// transactions are grouped in breakdowns.
const OtherCategory = "Diğer"

// Category is a spend label. Breakdowns and comparisons group by Name,
// not by ID; Icon and Color are presentation hints the engine never
// interprets.
type Category struct {
	ID       string
	Name     string
	Icon     string
	Color    string
	IsCustom bool
}

// NewCategory builds a user-defined category with a fresh id.
func NewCategory(name, icon, color string) Category {
	return Category{
		ID:       uuid.NewString(),
		Name:     name,
		Icon:     icon,
		Color:    color,
		IsCustom: true,
	}
}

// DefaultCategories is the fixed built-in category set. It always
// exists and is never persisted; only custom categories live in the
// store.
var DefaultCategories = []Category{
	{ID: "1", Name: "Market", Icon: "cart.fill", Color: "#22c55e"},
	{ID: "2", Name: "Restoran", Icon: "fork.knife", Color: "#f97316"},
	{ID: "3", Name: "Ulaşım", Icon: "car.fill", Color: "#3b82f6"},
	{ID: "4", Name: "Giyim", Icon: "tshirt.fill", Color: "#a855f7"},
	{ID: "5", Name: "Teknoloji", Icon: "laptopcomputer", Color: "#6366f1"},
	{ID: "6", Name: "Sağlık", Icon: "heart.fill", Color: "#ef4444"},
	{ID: "7", Name: "Eğlence", Icon: "film.fill", Color: "#ec4899"},
	{ID: "8", Name: "Fatura", Icon: "doc.text.fill", Color: "#84cc16"},
	{ID: "9", Name: "Abonelik", Icon: "repeat", Color: "#14b8a6"},
	{ID: "10", Name: "Eşya", Icon: "shippingbox.fill", Color: "#f59e0b"},
	{ID: "11", Name: "Kırtasiye", Icon: "pencil.and.ruler.fill", Color: "#eab308"},
	{ID: "12", Name: "İade", Icon: "arrow.uturn.backward.circle.fill", Color: "#06b6d4"},
	{ID: "13", Name: OtherCategory, Icon: "ellipsis.circle.fill", Color: "#6b7280"},
}

// CategoryColor looks up the presentation color for a category name,
// falling back to the neutral color of the "Diğer" bucket.
func CategoryColor(name string, categories []Category) string {
	for _, c := range categories {
		if c.Name == name {
			return c.Color
		}
	}
	return "#6b7280"
}
