package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/audit"
	"github.com/adityapallipati/voice-agent/internal/auth"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
	"github.com/adityapallipati/voice-agent/internal/fault"
	"github.com/adityapallipati/voice-agent/internal/orchestrator"
	"github.com/adityapallipati/voice-agent/internal/prompts"
	"github.com/adityapallipati/voice-agent/internal/reporting"
	"github.com/adityapallipati/voice-agent/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth         *auth.Manager
	Engine       *orchestrator.Engine
	Appointments *appointments.Service
	Callbacks    *callbacks.Service
	Sweeper      *callbacks.Sweeper
	Calls        *calls.Tracker
	Prompts      *prompts.Store
	Reports      *reporting.Service
	Audit        *audit.Service
}

// abortWithFault maps the error taxonomy onto HTTP statuses.
func abortWithFault(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fault.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, fault.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, fault.ErrConflict), errors.Is(err, fault.ErrAmbiguous):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Webhooks ---

type inboundCallRequest struct {
	CallID     string `json:"call_id"`
	Phone      string `json:"phone_number"`
	CustomerID string `json:"customer_id"`
	Transcript string `json:"transcript"`
}

// HandleInboundCall runs the full pipeline for one provider delivery.
// Duplicate deliveries are acknowledged with the no-op outcome.
func (h Handlers) HandleInboundCall(c *gin.Context) {
	var req inboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	res, err := h.Engine.ProcessCall(c.Request.Context(), orchestrator.ProcessRequest{
		CallID:     req.CallID,
		Phone:      req.Phone,
		CustomerID: req.CustomerID,
		Transcript: req.Transcript,
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}

	if h.Audit != nil && !res.Duplicate {
		if err := h.Audit.LogCallProcessed(c.Request.Context(), res.Call.CallID, res.Call.Intent,
			string(res.Action.Outcome), res.Action.AppointmentID, res.Action.CallbackID); err != nil {
			logger.FromGin(c).Warn("audit write failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, res)
}

type callStatusRequest struct {
	ProviderCallID string `json:"provider_call_id"`
	Status         string `json:"status"`
	Transcript     string `json:"transcript"`
}

// HandleCallStatus correlates provider status events with outbound callback
// calls. Events for unknown calls are acknowledged and dropped.
func (h Handlers) HandleCallStatus(c *gin.Context) {
	var req callStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ProviderCallID == "" || req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "provider_call_id, status required"})
		return
	}

	err := h.Engine.ProcessCallStatus(c.Request.Context(), req.ProviderCallID, req.Status, req.Transcript)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			// Status for a call we did not place; acknowledge so the
			// provider stops retrying.
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Calls ---

func (h Handlers) GetCall(c *gin.Context) {
	call, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) ListCalls(c *gin.Context) {
	out, err := h.Calls.List(c.Request.Context(), calls.ListFilter{
		Status:    calls.Status(c.Query("status")),
		Direction: calls.Direction(c.Query("direction")),
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

// --- Appointments ---

func (h Handlers) GetAppointment(c *gin.Context) {
	a, err := h.Appointments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) ListAppointments(c *gin.Context) {
	out, err := h.Appointments.List(c.Request.Context(), appointments.ListFilter{
		Phone:  c.Query("phone"),
		Status: appointments.Status(c.Query("status")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

type cancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

func (h Handlers) CancelAppointment(c *gin.Context) {
	var req cancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	a, err := h.Appointments.Cancel(c.Request.Context(), appointments.CancelRequest{
		AppointmentID: c.Param("id"),
		Reason:        req.Reason,
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Callbacks ---

type enqueueCallbackRequest struct {
	Phone       string    `json:"phone_number"`
	CustomerID  string    `json:"customer_id"`
	Purpose     string    `json:"purpose"`
	Script      string    `json:"script"`
	RequestedAt time.Time `json:"requested_at"`
}

func (h Handlers) EnqueueCallback(c *gin.Context) {
	var req enqueueCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cb, err := h.Callbacks.Enqueue(c.Request.Context(), callbacks.EnqueueRequest{
		Phone:       req.Phone,
		CustomerID:  req.CustomerID,
		Purpose:     req.Purpose,
		Script:      req.Script,
		RequestedAt: req.RequestedAt,
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, cb)
}

func (h Handlers) GetCallback(c *gin.Context) {
	cb, err := h.Callbacks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, cb)
}

func (h Handlers) ListCallbacks(c *gin.Context) {
	out, err := h.Callbacks.List(c.Request.Context(), callbacks.ListFilter{
		Phone:  c.Query("phone"),
		Status: callbacks.Status(c.Query("status")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"callbacks": out})
}

func (h Handlers) CancelCallback(c *gin.Context) {
	cb, err := h.Callbacks.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	if h.Audit != nil {
		uid, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		_ = h.Audit.Append(c.Request.Context(), audit.Event{
			Type:        audit.EventTypeCallbackCanceled,
			ActorUserID: uid,
			ActorRole:   role,
			IPAddress:   c.ClientIP(),
			CallbackID:  cb.ID,
		})
	}
	c.JSON(http.StatusOK, cb)
}

// RegenerateCallbackScript re-renders a callback's script from the current
// template, replacing any stored override.
func (h Handlers) RegenerateCallbackScript(c *gin.Context) {
	cb, err := h.Sweeper.RegenerateScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, cb)
}

// RunSweep triggers one callback sweep pass on demand. The cron schedule
// runs the same code path.
func (h Handlers) RunSweep(c *gin.Context) {
	res, err := h.Sweeper.RunSweep(c.Request.Context())
	if err != nil {
		abortWithFault(c, err)
		return
	}
	if h.Audit != nil {
		uid, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		summary := fmt.Sprintf("manual sweep: due=%d placed=%d rescheduled=%d exhausted=%d",
			res.Due, res.Placed, res.Rescheduled, res.Exhausted)
		if err := h.Audit.LogCallbackSweep(c.Request.Context(), uid, role, c.ClientIP(), summary); err != nil {
			logger.FromGin(c).Warn("audit write failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, res)
}

// ReapStale fails call sessions stuck mid-pipeline.
func (h Handlers) ReapStale(c *gin.Context) {
	n, err := h.Engine.ReapStale(c.Request.Context())
	if err != nil {
		abortWithFault(c, err)
		return
	}
	h.logAdminAction(c, "manual stale call reap")
	c.JSON(http.StatusOK, gin.H{"reaped": n})
}

// --- Prompts ---

type promptRequest struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

func (h Handlers) GetPrompt(c *gin.Context) {
	t, err := h.Prompts.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h Handlers) CreatePrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	t, err := h.Prompts.Create(c.Request.Context(), req.Name, req.Content, req.Description)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	h.logPromptChange(c, t.Name, "created")
	c.JSON(http.StatusCreated, t)
}

func (h Handlers) UpdatePrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	t, err := h.Prompts.Update(c.Request.Context(), c.Param("name"), req.Content, req.Description)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	h.logPromptChange(c, t.Name, "updated")
	c.JSON(http.StatusOK, t)
}

func (h Handlers) DeletePrompt(c *gin.Context) {
	name := c.Param("name")
	if err := h.Prompts.Delete(c.Request.Context(), name); err != nil {
		abortWithFault(c, err)
		return
	}
	h.logPromptChange(c, name, "deleted")
	c.Status(http.StatusNoContent)
}

// --- Reports ---

func (h Handlers) CallsReport(c *gin.Context) {
	rng, err := rangeQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{Range: rng})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CallbacksReport(c *gin.Context) {
	rng, err := rangeQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Reports.CallbackSummary(c.Request.Context(), reporting.CallbackSummaryRequest{Range: rng})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AppointmentsReport(c *gin.Context) {
	rng, err := rangeQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Reports.AppointmentSummary(c.Request.Context(), reporting.AppointmentSummaryRequest{Range: rng})
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- helpers ---

func (h Handlers) logAdminAction(c *gin.Context, message string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogAdminAction(c.Request.Context(), uid, role, c.ClientIP(), message, ""); err != nil {
		logger.FromGin(c).Warn("audit write failed", "err", err)
	}
}

func (h Handlers) logPromptChange(c *gin.Context, name, action string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogPromptChanged(c.Request.Context(), uid, role, c.ClientIP(), name, action); err != nil {
		logger.FromGin(c).Warn("audit write failed", "err", err)
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func rangeQuery(c *gin.Context) (reporting.TimeRange, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("to must be RFC3339")
	}
	return reporting.TimeRange{From: from, To: to}, nil
}
