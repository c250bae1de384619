/**
 * @description
 * AI Service: sentiment, report summaries, DCF valuation and free-form questions,
 * backed by whichever language model provider is configured.
 *
 * @dependencies
 * - backend/internal/integrations/llm: completion + tolerant JSON decoding
 * - github.com/shopspring/decimal: DCF arithmetic
 *
 * @notes
 * - Inputs are checked before any model call.
 * - DCF figures are computed here. The model only writes the explanation.
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bluewhale-terminal/backend/internal/integrations/llm"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	maxReportExcerpt          = 3000
	DefaultTerminalGrowthRate = 3.0
	DefaultProjectionYears    = 5
	maxProjectionYears        = 30
)

// ErrInvalidInput marks requests rejected before reaching the model
var ErrInvalidInput = errors.New("invalid input")

const analystSystemPrompt = "You are a financial analyst covering companies listed on the Johannesburg Stock Exchange. " +
	"Amounts are in South African rand. When asked for JSON, respond with JSON only, without markdown."

type SentimentResult struct {
	Sentiment   string   `json:"sentiment" validate:"oneof=POSITIVE NEGATIVE NEUTRAL"`
	Score       float64  `json:"score" validate:"gte=-1,lte=1"`
	Explanation string   `json:"explanation" validate:"required"`
	KeyTopics   []string `json:"keyTopics"`
}

type SummaryResult struct {
	Summary       string   `json:"summary" validate:"required"`
	KeyPoints     []string `json:"keyPoints"`
	RiskFactors   []string `json:"riskFactors"`
	Opportunities []string `json:"opportunities"`
}

// DCFParams are valuation assumptions. Rates are percentages; revenue is in millions.
type DCFParams struct {
	CurrentRevenue     float64
	RevenueGrowthRate  float64
	TerminalGrowthRate *float64
	DiscountRate       float64
	ProjectionYears    int
}

type DCFResult struct {
	FairValue         float64   `json:"fairValue"`
	ProjectedRevenues []float64 `json:"projectedRevenues"`
	TerminalValue     float64   `json:"terminalValue"`
	PresentValue      float64   `json:"presentValue"`
	Explanation       string    `json:"explanation"`
}

type AIService struct {
	LLM llm.Completer
}

func NewAIService(completer llm.Completer) *AIService {
	return &AIService{LLM: completer}
}

// AnalyzeSentiment classifies a piece of financial text
func (s *AIService) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	prompt := fmt.Sprintf(`Analyze the sentiment of this financial text.

Text: %q

Respond in this exact JSON format:
{
  "sentiment": "POSITIVE" or "NEGATIVE" or "NEUTRAL",
  "score": number between -1 and 1,
  "explanation": "brief explanation",
  "keyTopics": ["topic1", "topic2", "topic3"]
}`, text)

	var out SentimentResult
	if err := s.completeJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("analyze sentiment: %w", err)
	}
	return &out, nil
}

// SummarizeReport condenses a report excerpt for a company
func (s *AIService) SummarizeReport(ctx context.Context, reportText, companyName string) (*SummaryResult, error) {
	reportText = strings.TrimSpace(reportText)
	companyName = strings.TrimSpace(companyName)
	if reportText == "" || companyName == "" {
		return nil, fmt.Errorf("%w: report text and company name are required", ErrInvalidInput)
	}
	if r := []rune(reportText); len(r) > maxReportExcerpt {
		reportText = string(r[:maxReportExcerpt])
	}

	prompt := fmt.Sprintf(`Analyze this financial report for %s and provide a concise summary.

Report excerpt: %q

Respond in this exact JSON format:
{
  "summary": "2-3 sentence executive summary",
  "keyPoints": ["point 1", "point 2", "point 3"],
  "riskFactors": ["risk 1", "risk 2"],
  "opportunities": ["opportunity 1", "opportunity 2"]
}`, companyName, reportText)

	var out SummaryResult
	if err := s.completeJSON(ctx, prompt, &out); err != nil {
		return nil, fmt.Errorf("summarize report: %w", err)
	}
	return &out, nil
}

// CalculateDCF projects revenue, discounts it and adds a Gordon growth terminal value
func (s *AIService) CalculateDCF(ctx context.Context, p DCFParams) (*DCFResult, error) {
	result, err := ComputeDCF(p)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`A discounted cash flow valuation was computed with these inputs:
Current revenue: R%.2fM
Revenue growth rate: %.2f%%
Terminal growth rate: %.2f%%
Discount rate: %.2f%%
Projection years: %d

Results:
Projected revenues (R millions): %v
Present value of projections: R%.2fM
Terminal value: R%.2fM
Fair value: R%.2fM

In three or four sentences, explain how the fair value follows from these assumptions and which assumption it is most sensitive to. Respond with plain text.`,
		p.CurrentRevenue, p.RevenueGrowthRate, terminalRate(p), p.DiscountRate, years(p),
		result.ProjectedRevenues, result.PresentValue, result.TerminalValue, result.FairValue)

	explanation, err := s.LLM.Complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("explain dcf: %w", err)
	}
	result.Explanation = strings.TrimSpace(explanation)
	return result, nil
}

// AskQuestion answers a question, optionally grounded in caller supplied context
func (s *AIService) AskQuestion(ctx context.Context, question, background string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	prompt := fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nProvide a clear, concise answer based on the context provided.",
		strings.TrimSpace(background), question)

	answer, err := s.LLM.Complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *AIService) completeJSON(ctx context.Context, prompt string, v interface{}) error {
	raw, err := s.LLM.Complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return err
	}
	if err := llm.DecodeJSON(raw, v); err != nil {
		logger.Warn("[AI] model output rejected: %v", err)
		return err
	}
	return nil
}

// ComputeDCF does the valuation arithmetic. Revenue stands in for free cash flow.
//
//	revenue_t = revenue_0 * (1+g)^t
//	PV        = sum revenue_t / (1+d)^t
//	TV        = revenue_N * (1+tg) / (d-tg)
//	fair      = PV + TV / (1+d)^N
func ComputeDCF(p DCFParams) (*DCFResult, error) {
	if p.CurrentRevenue <= 0 {
		return nil, fmt.Errorf("%w: currentRevenue must be positive", ErrInvalidInput)
	}
	if p.DiscountRate <= 0 {
		return nil, fmt.Errorf("%w: discountRate must be positive", ErrInvalidInput)
	}
	n := years(p)
	if n < 1 || n > maxProjectionYears {
		return nil, fmt.Errorf("%w: projectionYears must be between 1 and %d", ErrInvalidInput, maxProjectionYears)
	}
	tgRate := terminalRate(p)
	if tgRate >= p.DiscountRate {
		return nil, fmt.Errorf("%w: discountRate must exceed terminalGrowthRate", ErrInvalidInput)
	}

	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)
	growth := one.Add(decimal.NewFromFloat(p.RevenueGrowthRate).Div(hundred))
	d := decimal.NewFromFloat(p.DiscountRate).Div(hundred)
	discount := one.Add(d)
	tg := decimal.NewFromFloat(tgRate).Div(hundred)

	revenue := decimal.NewFromFloat(p.CurrentRevenue)
	factor := one
	pv := decimal.Zero
	projected := make([]float64, 0, n)
	for t := 1; t <= n; t++ {
		revenue = revenue.Mul(growth)
		factor = factor.Mul(discount)
		pv = pv.Add(revenue.Div(factor))
		projected = append(projected, round2(revenue))
	}

	terminal := revenue.Mul(one.Add(tg)).Div(d.Sub(tg))
	fair := pv.Add(terminal.Div(factor))

	return &DCFResult{
		FairValue:         round2(fair),
		ProjectedRevenues: projected,
		TerminalValue:     round2(terminal),
		PresentValue:      round2(pv),
	}, nil
}

func terminalRate(p DCFParams) float64 {
	if p.TerminalGrowthRate == nil {
		return DefaultTerminalGrowthRate
	}
	return *p.TerminalGrowthRate
}

func years(p DCFParams) int {
	if p.ProjectionYears == 0 {
		return DefaultProjectionYears
	}
	return p.ProjectionYears
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
