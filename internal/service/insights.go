package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/report"
)

// emptyInsights is returned when the user has no records yet.
const emptyInsights = "Start tracking expenses to get personalized insights!"

// InsightsService turns a user's records into a short readable summary:
// top category share, 30-day daily average and a recent-trend sentence.
type InsightsService struct {
	expenses *ExpenseService
	logger   *zap.Logger
}

// NewInsightsService creates the insights service.
func NewInsightsService(expenses *ExpenseService, logger *zap.Logger) *InsightsService {
	return &InsightsService{expenses: expenses, logger: logger}
}

// Generate builds insights from the user's full record list, which the
// store returns newest first.
func (s *InsightsService) Generate(ctx context.Context, userID string) (*domain.Insights, error) {
	ctx, span := tracer.Start(ctx, "InsightsService.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	records, err := s.expenses.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildInsights(records), nil
}

func buildInsights(records []domain.Expense) *domain.Insights {
	if len(records) == 0 {
		return &domain.Insights{Summary: emptyInsights}
	}

	var sentences []string
	out := &domain.Insights{}

	total := decimal.Zero
	byCategory := make(map[domain.Category]decimal.Decimal)
	for _, r := range records {
		amt := decimal.NewFromFloat(r.Amount)
		total = total.Add(amt)
		cat := r.Category.Normalize()
		byCategory[cat] = byCategory[cat].Add(amt)
	}

	type catTotal struct {
		cat domain.Category
		sum decimal.Decimal
	}
	tops := make([]catTotal, 0, len(byCategory))
	for cat, sum := range byCategory {
		tops = append(tops, catTotal{cat, sum})
	}
	sort.Slice(tops, func(i, j int) bool {
		if !tops[i].sum.Equal(tops[j].sum) {
			return tops[i].sum.GreaterThan(tops[j].sum)
		}
		return tops[i].cat < tops[j].cat
	})

	if total.Sign() > 0 {
		top := tops[0]
		pct := top.sum.Div(total).Mul(decimal.NewFromInt(100))
		pctF, _ := pct.Float64()
		out.TopCategory = top.cat
		out.TopCategoryPct = pctF
		sentences = append(sentences, fmt.Sprintf(
			"Your highest spending category is %s (%.0f%% of total)",
			top.cat.Info().Label, math.Round(pctF),
		))
	}

	// Daily average over a 30-day horizon.
	dailyAvg := total.Div(decimal.NewFromInt(30))
	dailyAvgF, _ := dailyAvg.Float64()
	out.DailyAverage = dailyAvgF
	sentences = append(sentences, fmt.Sprintf("Your average daily spending is $%.2f", dailyAvgF))

	// Recent trend: the seven newest records against the 30-day average.
	recent := records
	if len(recent) > 7 {
		recent = recent[:7]
	}
	weeklyAvg := report.SumAmounts(recent) / 7
	if weeklyAvg > dailyAvgF && dailyAvgF > 0 {
		sentences = append(sentences, fmt.Sprintf(
			"You've been spending %.0f%% more than usual this week",
			math.Round((weeklyAvg-dailyAvgF)/dailyAvgF*100),
		))
	} else {
		sentences = append(sentences, "Your spending has been stable this week. Great job staying on track!")
	}

	out.Summary = strings.Join(sentences, ". ")
	return out
}
