package http

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/purchase-approval/internal/application/service"
	appwf "github.com/garyjia/purchase-approval/internal/application/workflow"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthReporter reports the state of each runtime component
type HealthReporter interface {
	HealthCheck(ctx context.Context) map[string]error
}

// Services groups the application services the handlers call
type Services struct {
	Requests    service.RequestService
	Attachments service.AttachmentService
	Analytics   service.AnalyticsService
	Export      service.ExportService
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthReporter
	logger   Logger
}

// NewHandlers creates a new Handlers instance; health may be nil
func NewHandlers(services Services, health HealthReporter, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// CreateRequestBody is the body of POST /api/purchase-requests
type CreateRequestBody struct {
	ItemDescription string          `json:"item_description"`
	Quantity        int             `json:"quantity"`
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`
	Urgency         entity.Urgency  `json:"urgency"`
	Justification   string          `json:"justification"`
	AutoValidateMG  bool            `json:"auto_validate_mg"`
}

// ValidateBody is the body of POST /api/purchase-requests/:id/validate
type ValidateBody struct {
	Action          domainwf.Action  `json:"action"`
	Comment         string           `json:"comment"`
	BudgetAvailable *bool            `json:"budget_available"`
	FinalCost       *decimal.Decimal `json:"final_cost"`
}

// ValidateResponse is the outcome of a decision
type ValidateResponse struct {
	Status      domainwf.Status        `json:"status"`
	CurrentStep string                 `json:"current_step"`
	Request     *service.RequestDetail `json:"request"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	code := http.StatusOK
	if h.health != nil {
		response.Components = map[string]string{}
		for name, err := range h.health.HealthCheck(c.Request.Context()) {
			if err != nil {
				response.Components[name] = err.Error()
				response.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			response.Components[name] = "ok"
		}
	}

	c.JSON(code, Response{Success: code == http.StatusOK, Data: response})
}

// CreateRequest handles POST /api/purchase-requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	detail, err := h.services.Requests.Create(c.Request.Context(), actorFrom(c), appwf.SubmitCommand{
		ItemDescription: body.ItemDescription,
		Quantity:        body.Quantity,
		EstimatedCost:   body.EstimatedCost,
		Urgency:         body.Urgency,
		Justification:   body.Justification,
		AutoValidateMG:  body.AutoValidateMG,
	})
	if err != nil {
		h.respondError(c, "create request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: detail})
}

// ListRequests handles GET /api/purchase-requests
func (h *Handlers) ListRequests(c *gin.Context) {
	query, ok := listQuery(c)
	if !ok {
		return
	}

	page, err := h.services.Requests.List(c.Request.Context(), actorFrom(c), query)
	if err != nil {
		h.respondError(c, "list requests", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: page})
}

// GetRequest handles GET /api/purchase-requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.services.Requests.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "get request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// ListSteps handles GET /api/purchase-requests/:id/steps
func (h *Handlers) ListSteps(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	steps, err := h.services.Requests.Steps(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "list steps", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}

// ValidateRequest handles POST /api/purchase-requests/:id/validate
func (h *Handlers) ValidateRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body ValidateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	detail, err := h.services.Requests.Validate(c.Request.Context(), appwf.ValidateCommand{
		RequestID: id,
		Actor:     actorFrom(c),
		Action:    body.Action,
		Payload: appwf.DecisionPayload{
			Comment:         body.Comment,
			BudgetAvailable: body.BudgetAvailable,
			FinalCost:       body.FinalCost,
		},
	})
	if err != nil {
		h.respondError(c, "validate request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: ValidateResponse{
		Status:      detail.Status,
		CurrentStep: detail.CurrentStep,
		Request:     detail,
	}})
}

// ExportRequests handles GET /api/purchase-requests/export.xlsx
func (h *Handlers) ExportRequests(c *gin.Context) {
	query, ok := listQuery(c)
	if !ok {
		return
	}

	// Build first so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.services.Export.Export(c.Request.Context(), actorFrom(c), query, &buf); err != nil {
		h.respondError(c, "export requests", err)
		return
	}

	name := fmt.Sprintf("purchase-requests-%s.%s", time.Now().UTC().Format("20060102"), h.services.Export.Extension())
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, h.services.Export.ContentType(), buf.Bytes())
}

// ListAttachments handles GET /api/purchase-requests/:id/attachments
func (h *Handlers) ListAttachments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	atts, err := h.services.Attachments.List(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "list attachments", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: atts})
}

// UploadAttachment handles POST /api/purchase-requests/:id/attachments (multipart field "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required", Field: "file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, "open upload", err)
		return
	}
	defer file.Close()

	att, err := h.services.Attachments.Upload(c.Request.Context(), actorFrom(c), id, service.Upload{
		FileName: filepath.Base(header.Filename),
		MimeType: uploadMimeType(header.Header.Get("Content-Type"), header.Filename),
		Content:  file,
	})
	if err != nil {
		h.respondError(c, "upload attachment", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: att})
}

// DownloadAttachment handles GET /api/attachments/:id
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	att, rc, err := h.services.Attachments.Open(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "download attachment", err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, att.FileSize, att.MimeType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}),
	})
}

// DeleteAttachment handles DELETE /api/attachments/:id
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.services.Attachments.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "delete attachment", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	dash, err := h.services.Analytics.Dashboard(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, "dashboard", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: dash})
}

func pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id: "+idStr)
		return 0, false
	}
	return id, true
}

func listQuery(c *gin.Context) (service.ListQuery, bool) {
	query := service.ListQuery{
		Status:    c.Query("status"),
		Urgency:   c.Query("urgency"),
		CreatedBy: c.Query("created_by"),
		Search:    c.Query("search"),
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
		MinAmount: c.Query("min_amount"),
		MaxAmount: c.Query("max_amount"),
		Ordering:  c.Query("ordering"),
	}

	for name, dst := range map[string]*int{"page": &query.Page, "page_size": &query.PageSize} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: name + " must be an integer", Field: name})
			return query, false
		}
		*dst = n
	}
	return query, true
}

// uploadMimeType trusts the part header unless it is missing or generic
func uploadMimeType(declared, fileName string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		mediaType, _, _ := mime.ParseMediaType(byExt)
		return mediaType
	}
	return declared
}
