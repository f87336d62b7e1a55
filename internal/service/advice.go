package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/smartspendr/bfa-go/internal/domain"
	"github.com/smartspendr/bfa-go/internal/infra/observability"
	"github.com/smartspendr/bfa-go/internal/port"
)

// recentRecordLimit caps how many expense records are sent to the agent
// as conversation context.
const recentRecordLimit = 10

// AdviceService answers financial questions. It prefers the remote advice
// agent and degrades to canned keyword answers when the agent is down or
// unconfigured, so Advise never fails.
type AdviceService struct {
	agent    port.AdviceAgent
	expenses *ExpenseService
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAdviceService creates the advice service. A nil agent means no
// remote API is configured and every answer comes from the fallback.
func NewAdviceService(
	agent port.AdviceAgent,
	expenses *ExpenseService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AdviceService {
	return &AdviceService{
		agent:    agent,
		expenses: expenses,
		metrics:  metrics,
		logger:   logger,
	}
}

// Advise answers one question in a conversation. The answer is always
// non-empty; the Fallback flag tells the UI whether the agent was used.
func (s *AdviceService) Advise(ctx context.Context, userID string, req *domain.AdviceRequest) *domain.AdviceResponse {
	ctx, span := tracer.Start(ctx, "AdviceService.Advise")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("advice", time.Since(start))
	}()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	resp := &domain.AdviceResponse{
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if s.agent == nil {
		resp.Answer = fallbackAnswer(req.Query)
		resp.Fallback = true
		s.metrics.IncrAdviceResult("fallback")
		return resp
	}

	// Records are context, not a requirement; the agent can answer
	// without them.
	records, err := s.expenses.List(ctx, userID)
	if err != nil {
		s.logger.Warn("advice: could not load records for context",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		records = nil
	}
	if len(records) > recentRecordLimit {
		records = records[:recentRecordLimit]
	}

	agentResp, err := s.agent.Advise(ctx, &domain.AgentRequest{
		Query:   req.Query,
		Prompt:  contextualPrompt(req.Query, records),
		Records: records,
	})
	if err != nil {
		s.logger.Warn("advice agent unavailable, using fallback",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("advice")
		s.metrics.IncrAdviceResult("fallback")
		resp.Answer = fallbackAnswer(req.Query)
		resp.Fallback = true
		return resp
	}

	s.metrics.IncrAdviceResult("agent")
	resp.Answer = agentResp.Answer
	return resp
}

// contextualPrompt frames the user's question with their recent spending
// so the agent can personalize its answer.
func contextualPrompt(query string, records []domain.Expense) string {
	var total float64
	seen := make(map[domain.Category]bool)
	categories := make([]string, 0, len(records))
	lines := make([]string, 0, len(records))
	for _, r := range records {
		total += r.Amount
		cat := r.Category.Normalize()
		if !seen[cat] {
			seen[cat] = true
			categories = append(categories, string(cat))
		}
		lines = append(lines, fmt.Sprintf("%s: $%.2f (%s)", r.Title, r.Amount, cat))
	}

	var b strings.Builder
	b.WriteString("You are SmartSpendr AI, a personal financial advisor. Help the user with their expense management.\n\n")
	fmt.Fprintf(&b, "User Query: %q\n\n", query)
	b.WriteString("User's Recent Financial Data:\n")
	fmt.Fprintf(&b, "- Total Expenses: $%.2f\n", total)
	fmt.Fprintf(&b, "- Number of Transactions: %d\n", len(records))
	fmt.Fprintf(&b, "- Categories: %s\n", strings.Join(categories, ", "))
	fmt.Fprintf(&b, "- Recent Expenses: %s\n\n", strings.Join(lines, ", "))
	b.WriteString("Provide practical, personalized financial advice based on this data. Be concise, actionable, and supportive.")
	return b.String()
}

// fallbackAnswers map query keywords to canned advice, checked in order.
var fallbackAnswers = []struct {
	keyword string
	answer  string
}{
	{"save money", "Here are some ways to save money: 1) Track all expenses daily 2) Set category budgets 3) Cook meals at home 4) Review subscriptions monthly 5) Use the 24-hour rule for non-essential purchases"},
	{"budget", "For effective budgeting: Follow the 50/30/20 rule - 50% for needs, 30% for wants, 20% for savings. Set realistic category limits and review them monthly."},
	{"analyze", "Based on general patterns: Look for your largest expense categories, identify unnecessary recurring costs, and track daily spending trends to find optimization opportunities."},
}

const fallbackDefault = "I can help you with budgeting, saving money, analyzing spending patterns, and creating financial goals. What specific aspect of your finances would you like to discuss?"

func fallbackAnswer(query string) string {
	q := strings.ToLower(query)
	for _, f := range fallbackAnswers {
		if strings.Contains(q, f.keyword) {
			return f.answer
		}
	}
	return fallbackDefault
}
