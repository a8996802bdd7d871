package handler

import (
	"strconv"
	"strings"

	statsapp "github.com/agency/backoffice/internal/application/stats"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatsHandler serves the read-only statistics endpoints
type StatsHandler struct {
	BaseHandler
	statsService *statsapp.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService *statsapp.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// RegisterRoutes mounts the statistics endpoints on the given group
func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stats := rg.Group("/stats")
	{
		stats.GET("/dashboard", h.Dashboard)
		stats.GET("/policies", h.TemplateStats)
		stats.GET("/policies/:id", h.DetailStats)
		stats.GET("/expiry", h.ExpiryTracking)
		stats.GET("/system", h.SystemMetrics)
		stats.GET("/providers", h.ProviderPerformance)
		stats.GET("/types", h.TypePerformance)
	}
}

// Dashboard returns the landing-page summary with month-over-month deltas
func (h *StatsHandler) Dashboard(c *gin.Context) {
	h.Success(c, h.statsService.CalculateDashboardStats(c.Request.Context()))
}

// TemplateStats returns catalog-level statistics. Query parameters narrow
// the catalog: search, types and providers as comma-separated lists, and
// has_instances as a boolean.
func (h *StatsHandler) TemplateStats(c *gin.Context) {
	filter, err := parseTemplateFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.Success(c, h.statsService.CalculatePolicyTemplateStats(c.Request.Context(), filter))
}

// DetailStats returns per-template statistics for the detail page
func (h *StatsHandler) DetailStats(c *gin.Context) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template ID format")
		return
	}

	h.Success(c, h.statsService.CalculatePolicyDetailStats(c.Request.Context(), templateID))
}

// ExpiryTracking returns instances bucketed by proximity to expiry
func (h *StatsHandler) ExpiryTracking(c *gin.Context) {
	h.Success(c, h.statsService.GetExpiryTrackingStats(c.Request.Context()))
}

// SystemMetrics returns the agency-wide financial and retention summary
func (h *StatsHandler) SystemMetrics(c *gin.Context) {
	h.Success(c, h.statsService.GetSystemLevelMetrics(c.Request.Context()))
}

// ProviderPerformance returns per-provider aggregate performance
func (h *StatsHandler) ProviderPerformance(c *gin.Context) {
	h.Success(c, h.statsService.GetProviderPerformanceMetrics(c.Request.Context()))
}

// TypePerformance returns per-type aggregate performance
func (h *StatsHandler) TypePerformance(c *gin.Context) {
	h.Success(c, h.statsService.GetPolicyTypePerformanceMetrics(c.Request.Context()))
}

// parseTemplateFilter builds a template filter from query parameters
func parseTemplateFilter(c *gin.Context) (policy.TemplateFilter, error) {
	filter := policy.TemplateFilter{
		Filter: shared.Filter{Search: strings.TrimSpace(c.Query("search"))},
	}

	for _, raw := range splitCSV(c.Query("types")) {
		t, err := policy.ParsePolicyType(raw)
		if err != nil {
			return policy.TemplateFilter{}, err
		}
		filter.Types = append(filter.Types, t)
	}

	filter.Providers = splitCSV(c.Query("providers"))

	if raw := c.Query("has_instances"); raw != "" {
		hasInstances, err := strconv.ParseBool(raw)
		if err != nil {
			return policy.TemplateFilter{}, err
		}
		filter.HasInstances = &hasInstances
	}

	return filter, nil
}

// splitCSV splits a comma-separated query value, dropping empty parts
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
