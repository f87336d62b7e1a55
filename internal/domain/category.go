package domain

// Category is the closed set of expense categories. Anything outside the
// enumerated values resolves to CategoryOther rather than failing.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryBills         Category = "bills"
	CategoryShopping      Category = "shopping"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryTravel        Category = "travel"
	CategoryOther         Category = "other"
)

// CategoryInfo holds the display attributes for a category.
type CategoryInfo struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
	Color string   `json:"color"`
	Icon  string   `json:"icon"`
}

// categoryTable is the static lookup for every valid category value.
var categoryTable = map[Category]CategoryInfo{
	CategoryFood:          {CategoryFood, "Food & Dining", "#EF4444", "🍽️"},
	CategoryTransport:     {CategoryTransport, "Transportation", "#3B82F6", "🚗"},
	CategoryEntertainment: {CategoryEntertainment, "Entertainment", "#8B5CF6", "🎬"},
	CategoryBills:         {CategoryBills, "Bills & Utilities", "#F59E0B", "📄"},
	CategoryShopping:      {CategoryShopping, "Shopping", "#10B981", "🛍️"},
	CategoryHealth:        {CategoryHealth, "Healthcare", "#F97316", "🏥"},
	CategoryEducation:     {CategoryEducation, "Education", "#06B6D4", "📚"},
	CategoryTravel:        {CategoryTravel, "Travel", "#84CC16", "✈️"},
	CategoryOther:         {CategoryOther, "Other", "#6B7280", "📦"},
}

// categoryOrder preserves the display order of the category table.
var categoryOrder = []Category{
	CategoryFood, CategoryTransport, CategoryEntertainment, CategoryBills,
	CategoryShopping, CategoryHealth, CategoryEducation, CategoryTravel,
	CategoryOther,
}

// Valid reports whether c is one of the enumerated category values.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Normalize maps unknown or empty category values to CategoryOther.
func (c Category) Normalize() Category {
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Info resolves the display attributes for c. Unknown values resolve to
// the CategoryOther entry, never to a zero value.
func (c Category) Info() CategoryInfo {
	if info, ok := categoryTable[c]; ok {
		return info
	}
	return categoryTable[CategoryOther]
}

// Categories returns every category in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categoryOrder))
	for _, c := range categoryOrder {
		out = append(out, categoryTable[c])
	}
	return out
}
