package domain

// Report is a derived summary of expenses over a window. It is recomputed
// on demand and never persisted.
type Report struct {
	TotalAmount    float64         `json:"totalAmount"`
	TotalExpenses  int             `json:"totalExpenses"`
	CategoryTotals []CategoryTotal `json:"categoryTotals"`
	DailyAverage   float64         `json:"dailyAverage"`
}

// CategoryTotal is one category's share of a report, ordered descending by
// total with lexicographic tie-break on the category value.
type CategoryTotal struct {
	Category   Category `json:"category"`
	Total      float64  `json:"total"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// MonthlyTrend is one month's spending total, used by the trend chart.
type MonthlyTrend struct {
	Month string  `json:"month"` // YYYY-MM
	Label string  `json:"label"` // short month name
	Total float64 `json:"total"`
}

// Insights is a short, human-readable summary of spending patterns.
type Insights struct {
	TopCategory    Category `json:"topCategory,omitempty"`
	TopCategoryPct float64  `json:"topCategoryPct,omitempty"`
	DailyAverage   float64  `json:"dailyAverage"`
	Summary        string   `json:"summary"`
}
