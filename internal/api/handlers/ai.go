/**
 * @description
 * AI API Handlers.
 * Thin adapters over services.AIService. Required input is checked here, before any provider call.
 *
 * @notes
 * - Provider failures are 502, a missing provider key is 503.
 */

package handlers

import (
	"errors"

	"github.com/bluewhale-terminal/backend/internal/integrations/llm"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AIHandler struct {
	Service *services.AIService
}

func NewAIHandler(service *services.AIService) *AIHandler {
	return &AIHandler{Service: service}
}

type sentimentRequest struct {
	Text string `json:"text" validate:"required"`
}

type summarizeRequest struct {
	ReportText  string `json:"reportText" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
}

type dcfRequest struct {
	CurrentRevenue     float64  `json:"currentRevenue" validate:"required,gt=0"`
	RevenueGrowthRate  *float64 `json:"revenueGrowthRate" validate:"required,gt=-100,lt=1000"`
	TerminalGrowthRate *float64 `json:"terminalGrowthRate" validate:"omitempty,gt=-100,lt=100"`
	DiscountRate       float64  `json:"discountRate" validate:"required,gt=0,lt=100"`
	ProjectionYears    int      `json:"projectionYears" validate:"omitempty,min=1,max=30"`
}

type askRequest struct {
	Question string `json:"question" validate:"required"`
	Context  string `json:"context"`
}

// Sentiment classifies financial text
// POST /api/v1/ai/sentiment
func (h *AIHandler) Sentiment(c *fiber.Ctx) error {
	var req sentimentRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Text is required")
	}
	result, err := h.Service.AnalyzeSentiment(c.Context(), req.Text)
	if err != nil {
		return aiError(c, err, "Failed to analyze sentiment")
	}
	return ok(c, result)
}

// Summarize condenses a report excerpt
// POST /api/v1/ai/summarize
func (h *AIHandler) Summarize(c *fiber.Ctx) error {
	var req summarizeRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Report text and company name are required")
	}
	result, err := h.Service.SummarizeReport(c.Context(), req.ReportText, req.CompanyName)
	if err != nil {
		return aiError(c, err, "Failed to summarize report")
	}
	return ok(c, result)
}

// DCF values a company from growth and discount assumptions
// POST /api/v1/ai/dcf
func (h *AIHandler) DCF(c *fiber.Ctx) error {
	var req dcfRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Missing required DCF parameters: "+err.Error())
	}
	result, err := h.Service.CalculateDCF(c.Context(), services.DCFParams{
		CurrentRevenue:     req.CurrentRevenue,
		RevenueGrowthRate:  *req.RevenueGrowthRate,
		TerminalGrowthRate: req.TerminalGrowthRate,
		DiscountRate:       req.DiscountRate,
		ProjectionYears:    req.ProjectionYears,
	})
	if err != nil {
		return aiError(c, err, "Failed to calculate DCF")
	}
	return ok(c, result)
}

// Ask answers a free-form question
// POST /api/v1/ai/ask
func (h *AIHandler) Ask(c *fiber.Ctx) error {
	var req askRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Question is required")
	}
	answer, err := h.Service.AskQuestion(c.Context(), req.Question, req.Context)
	if err != nil {
		return aiError(c, err, "Failed to answer question")
	}
	return ok(c, fiber.Map{"answer": answer})
}

func aiError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, services.ErrInvalidInput) || errors.Is(err, llm.ErrNotConfigured) {
		return serviceError(c, err, msg)
	}
	logger.Error("AIHandler: %s: %v", msg, err)
	return fail(c, fiber.StatusBadGateway, msg)
}
