package handler

import (
	"errors"
	"net/http"

	"github.com/agency/backoffice/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports database connectivity
type HealthChecker interface {
	Ping() error
}

// ReminderAdmin is the operational surface of the reminder scheduler
type ReminderAdmin interface {
	TriggerManualRun() error
	Status() map[string]any
}

// SystemHandler serves health and operational endpoints
type SystemHandler struct {
	BaseHandler
	db        HealthChecker
	reminders ReminderAdmin
}

// NewSystemHandler creates a new SystemHandler. reminders may be nil when
// the scheduler is disabled.
func NewSystemHandler(db HealthChecker, reminders ReminderAdmin) *SystemHandler {
	return &SystemHandler{
		db:        db,
		reminders: reminders,
	}
}

// RegisterRoutes mounts the system endpoints on the given group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)

	admin := rg.Group("/admin/reminders")
	{
		admin.GET("/status", h.ReminderStatus)
		admin.POST("/run", h.RunReminders)
	}
}

// Health reports service liveness and database connectivity
func (h *SystemHandler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "connected",
	})
}

// ReminderStatus returns the reminder scheduler status
func (h *SystemHandler) ReminderStatus(c *gin.Context) {
	if h.reminders == nil {
		h.Success(c, gin.H{"enabled": false})
		return
	}
	h.Success(c, h.reminders.Status())
}

// RunReminders triggers a reminder batch outside the cron schedule. The
// run executes in the background; the response only acknowledges the
// trigger.
func (h *SystemHandler) RunReminders(c *gin.Context) {
	if h.reminders == nil {
		h.Conflict(c, "Reminder scheduler is not configured")
		return
	}
	if err := h.reminders.TriggerManualRun(); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.Conflict(c, "Reminder scheduler is not running")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"triggered": true})
}
