package handlers

import (
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/api/middleware"
	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

type createReportRequest struct {
	CompanyID   string    `json:"companyId" validate:"required,uuid"`
	Title       string    `json:"title" validate:"required,max=500"`
	ReportType  string    `json:"reportType" validate:"required,oneof=ANNUAL INTERIM QUARTERLY SENS OTHER"`
	FiscalYear  int       `json:"fiscalYear" validate:"omitempty,gte=1900,lte=2100"`
	PublishDate time.Time `json:"publishDate" validate:"required"`
	FileURL     string    `json:"fileUrl" validate:"omitempty,url"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize" validate:"gte=0"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"keyPoints"`
}

type saveReportRequest struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
	Notes    string `json:"notes" validate:"max=1000"`
}

// List returns reports, newest first
// GET /api/v1/reports
func (h *ReportHandler) List(c *fiber.Ctx) error {
	filter := services.ReportFilter{
		ReportType: models.ReportType(strings.ToUpper(c.Query("reportType"))),
		FiscalYear: c.QueryInt("fiscalYear", 0),
		Search:     c.Query("search"),
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", services.DefaultReportLimit),
	}
	if raw := c.Query("companyId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid companyId")
		}
		filter.CompanyID = &id
	}
	if filter.ReportType != "" && !filter.ReportType.Valid() {
		return fail(c, fiber.StatusBadRequest, "Unknown reportType")
	}

	page, err := h.Service.List(c.Context(), filter)
	if err != nil {
		return serviceError(c, err, "Failed to fetch reports")
	}
	return ok(c, page)
}

// Get returns one report
// GET /api/v1/reports/:id
func (h *ReportHandler) Get(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "Invalid report id")
	}
	report, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to fetch report")
	}
	return ok(c, report)
}

// Create registers a report
// POST /api/v1/reports
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var req createReportRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.Service.Create(c.Context(), services.CreateReportInput{
		CompanyID:   uuid.MustParse(req.CompanyID),
		Title:       req.Title,
		ReportType:  models.ReportType(req.ReportType),
		FiscalYear:  req.FiscalYear,
		PublishDate: req.PublishDate,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		Summary:     req.Summary,
		KeyPoints:   req.KeyPoints,
	})
	if err != nil {
		return serviceError(c, err, "Failed to create report")
	}
	return success(c, fiber.StatusCreated, report, "Report created")
}

// Save bookmarks a report
// POST /api/v1/reports/save
func (h *ReportHandler) Save(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req saveReportRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	saved, err := h.Service.Save(c.Context(), userID, uuid.MustParse(req.ReportID), req.Notes)
	if err != nil {
		return serviceError(c, err, "Failed to save report")
	}
	return success(c, fiber.StatusCreated, saved, "Report saved")
}

// ListSaved returns the user's saved reports
// GET /api/v1/reports/saved/me
func (h *ReportHandler) ListSaved(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	saved, err := h.Service.ListSaved(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch saved reports")
	}
	return ok(c, saved)
}

// Unsave removes a bookmark. :id is the report id.
// DELETE /api/v1/reports/saved/:id
func (h *ReportHandler) Unsave(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	reportID, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "Invalid report id")
	}

	if err := h.Service.Unsave(c.Context(), userID, reportID); err != nil {
		return serviceError(c, err, "Failed to unsave report")
	}
	return success(c, fiber.StatusOK, nil, "Report removed from saved")
}
