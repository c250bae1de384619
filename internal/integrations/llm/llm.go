/**
 * @description
 * Provider-neutral language model access for the AI endpoints.
 * A Completer turns a system prompt plus a user prompt into text; DecodeJSON turns
 * that text into a validated struct.
 *
 * @dependencies
 * - github.com/anthropics/anthropic-sdk-go: default provider
 * - github.com/RealAlexandreAI/json-repair: tolerant parsing of model output
 * - github.com/go-playground/validator/v10: output shape checks
 *
 * @notes
 * - A missing key never fails startup. Calls return ErrNotConfigured instead.
 */

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/go-playground/validator/v10"
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("language model provider not configured")

// Completer produces a completion for one system + user prompt pair
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ParseError reports model output that could not be turned into the expected shape.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// New returns the completer selected by LLM_PROVIDER.
func New(cfg *config.Config) Completer {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAIAPIKey == "" {
			logger.Warn("[LLM] OPENAI_API_KEY not set; AI endpoints will return 503")
			return unconfigured{}
		}
		return NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.LLM.OpenAIModel)
	default:
		if cfg.LLM.AnthropicAPIKey == "" {
			logger.Warn("[LLM] ANTHROPIC_API_KEY not set; AI endpoints will return 503")
			return unconfigured{}
		}
		return NewAnthropic(cfg.LLM.AnthropicAPIKey, cfg.LLM.AnthropicModel)
	}
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

var validate = validator.New()

// ErrNumbersChanged rejects a repair that altered a number literal.
var ErrNumbersChanged = errors.New("repair changed number literals")

// DecodeJSON strips markdown fences, fixes trailing commas and single quotes,
// decodes into v and validates it. Output with structural damage goes through
// json-repair, and the repair is only accepted when every number survives it.
func DecodeJSON(raw string, v interface{}) error {
	text := normalizeJSON(stripFences(raw))
	if text == "" {
		return &ParseError{Raw: raw, Err: errors.New("empty output")}
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(text)
		if repairErr != nil {
			return &ParseError{Raw: raw, Err: repairErr}
		}
		if !sameNumbers(text, repaired) {
			return &ParseError{Raw: raw, Err: ErrNumbersChanged}
		}
		if err := json.Unmarshal([]byte(repaired), v); err != nil {
			return &ParseError{Raw: raw, Err: err}
		}
	}

	if err := validate.Struct(v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

// normalizeJSON rewrites single-quoted strings as double-quoted ones and drops
// commas that close an object or array. Everything else is copied as is.
func normalizeJSON(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	var quote rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			switch {
			case r == '\\' && i+1 < len(runes):
				i++
				if quote == '\'' && runes[i] == '\'' {
					b.WriteRune('\'')
				} else {
					b.WriteRune(r)
					b.WriteRune(runes[i])
				}
			case r == quote:
				b.WriteRune('"')
				quote = 0
			case r == '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
			continue
		}

		switch r {
		case '"', '\'':
			quote = r
			b.WriteRune('"')
		case ',':
			j := i + 1
			for j < len(runes) && strings.ContainsRune(" \t\r\n", runes[j]) {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// numberLiterals returns the values of the number tokens outside strings, sorted.
func numberLiterals(s string) []float64 {
	var (
		nums    []float64
		inStr   bool
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
			continue
		}
		if c != '-' && (c < '0' || c > '9') {
			continue
		}
		j := i + 1
		for j < len(s) && strings.IndexByte("0123456789.eE+-", s[j]) >= 0 {
			j++
		}
		if f, err := strconv.ParseFloat(s[i:j], 64); err == nil {
			nums = append(nums, f)
		}
		i = j - 1
	}
	sort.Float64s(nums)
	return nums
}

func sameNumbers(before, after string) bool {
	a, b := numberLiterals(before), numberLiterals(after)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
