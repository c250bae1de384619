package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bluewhale-terminal/backend/internal/integrations/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter replays one canned answer and records prompts
type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func TestAnalyzeSentimentParsesFencedOutput(t *testing.T) {
	fake := &fakeCompleter{reply: "```json\n{\"sentiment\":\"POSITIVE\",\"score\":0.7,\"explanation\":\"Earnings beat\",\"keyTopics\":[\"earnings\",]}\n```"}
	svc := NewAIService(fake)

	got, err := svc.AnalyzeSentiment(context.Background(), "Headline earnings rose 18%")
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", got.Sentiment)
	assert.Equal(t, 0.7, got.Score)
	assert.Equal(t, []string{"earnings"}, got.KeyTopics)
	require.Equal(t, 1, fake.Calls())
	assert.Contains(t, fake.prompts[0], "Headline earnings rose 18%")
}

func TestAnalyzeSentimentRejectsEmptyTextWithoutCalling(t *testing.T) {
	fake := &fakeCompleter{}
	svc := NewAIService(fake)

	_, err := svc.AnalyzeSentiment(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, fake.Calls())
}

func TestAnalyzeSentimentOutOfRangeScore(t *testing.T) {
	svc := NewAIService(&fakeCompleter{reply: `{"sentiment":"POSITIVE","score":4,"explanation":"x"}`})

	_, err := svc.AnalyzeSentiment(context.Background(), "text")
	var perr *llm.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestSummarizeReportTruncatesExcerpt(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary":"Solid year","keyPoints":["a"],"riskFactors":[],"opportunities":["b"]}`}
	svc := NewAIService(fake)

	_, err := svc.SummarizeReport(context.Background(), "", "Naspers")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, fake.Calls())

	long := strings.Repeat("z", maxReportExcerpt+500)
	got, err := svc.SummarizeReport(context.Background(), long, "Naspers")
	require.NoError(t, err)
	assert.Equal(t, "Solid year", got.Summary)
	assert.NotContains(t, fake.prompts[0], strings.Repeat("z", maxReportExcerpt+1))
}

func TestComputeDCF(t *testing.T) {
	zero := 0.0
	got, err := ComputeDCF(DCFParams{CurrentRevenue: 100, RevenueGrowthRate: 10, TerminalGrowthRate: &zero, DiscountRate: 10, ProjectionYears: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{110, 121}, got.ProjectedRevenues)
	assert.Equal(t, 200.0, got.PresentValue)
	assert.Equal(t, 1210.0, got.TerminalValue)
	assert.Equal(t, 1200.0, got.FairValue)
}

func TestComputeDCFDefaultsAndValidation(t *testing.T) {
	got, err := ComputeDCF(DCFParams{CurrentRevenue: 1000, RevenueGrowthRate: 8, DiscountRate: 12})
	require.NoError(t, err)
	assert.Len(t, got.ProjectedRevenues, DefaultProjectionYears)

	three := 3.0
	for name, p := range map[string]DCFParams{
		"no revenue":         {DiscountRate: 10},
		"no discount":        {CurrentRevenue: 10},
		"terminal too large": {CurrentRevenue: 10, DiscountRate: 3, TerminalGrowthRate: &three},
		"too many years":     {CurrentRevenue: 10, DiscountRate: 10, ProjectionYears: 50},
	} {
		_, err := ComputeDCF(p)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestCalculateDCFAddsExplanation(t *testing.T) {
	fake := &fakeCompleter{reply: "  Most of the value sits in the terminal value.  "}
	svc := NewAIService(fake)

	got, err := svc.CalculateDCF(context.Background(), DCFParams{CurrentRevenue: 500, RevenueGrowthRate: 5, DiscountRate: 11})
	require.NoError(t, err)
	assert.Equal(t, "Most of the value sits in the terminal value.", got.Explanation)
	assert.Greater(t, got.FairValue, got.PresentValue)
}

func TestAskQuestionPropagatesProviderErrors(t *testing.T) {
	svc := NewAIService(&fakeCompleter{err: llm.ErrNotConfigured})
	_, err := svc.AskQuestion(context.Background(), "What is a P/E ratio?", "")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	svc = NewAIService(&fakeCompleter{err: errors.New("boom")})
	_, err = svc.AskQuestion(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
