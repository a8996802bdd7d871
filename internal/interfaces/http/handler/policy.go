package handler

import (
	"fmt"
	"strconv"
	"strings"

	policyapp "github.com/agency/backoffice/internal/application/policy"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PolicyHandler serves the unified policy surface over both storage
// representations
type PolicyHandler struct {
	BaseHandler
	policyService *policyapp.PolicyCompatibilityService
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(policyService *policyapp.PolicyCompatibilityService) *PolicyHandler {
	return &PolicyHandler{
		policyService: policyService,
	}
}

// RegisterRoutes mounts the policy endpoints on the given group
func (h *PolicyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	policies := rg.Group("/policies")
	{
		policies.GET("", h.List)
		policies.POST("", h.Create)
		policies.GET("/system-status", h.SystemStatus)
		policies.PUT("/:id", h.Update)
		policies.DELETE("/:id", h.Delete)
	}
	rg.GET("/clients/:id/policies", h.ListByClient)
}

// List returns one page of unified policy records
func (h *PolicyHandler) List(c *gin.Context) {
	opts, err := parseListOptions(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.policyService.GetAllPolicies(c.Request.Context(), opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, page)
}

// ListByClient returns all of one client's policies, normalized first
// with legacy fallback
func (h *PolicyHandler) ListByClient(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	policies, err := h.policyService.GetClientPolicies(c.Request.Context(), clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, policies)
}

// Create creates a policy through the unified surface
func (h *PolicyHandler) Create(c *gin.Context) {
	var input policyapp.CreatePolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	created, err := h.policyService.CreatePolicy(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, created)
}

// Update applies a partial update to a policy in either representation
func (h *PolicyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid policy ID format")
		return
	}

	var input policyapp.UpdatePolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	updated, err := h.policyService.UpdatePolicy(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, updated)
}

// Delete removes a policy from whichever representation holds it
func (h *PolicyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid policy ID format")
		return
	}

	if err := h.policyService.DeletePolicy(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// SystemStatus reports the active compatibility configuration
func (h *PolicyHandler) SystemStatus(c *gin.Context) {
	h.Success(c, h.policyService.GetSystemStatus())
}

// parseListOptions builds unified listing options from query parameters
func parseListOptions(c *gin.Context) (policy.ListOptions, error) {
	opts := policy.ListOptions{
		Search:   strings.TrimSpace(c.Query("search")),
		Provider: strings.TrimSpace(c.Query("provider")),
	}

	var err error
	if raw := c.Query("page"); raw != "" {
		if opts.Page, err = strconv.Atoi(raw); err != nil {
			return policy.ListOptions{}, fmt.Errorf("invalid page: %q", raw)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if opts.Limit, err = strconv.Atoi(raw); err != nil {
			return policy.ListOptions{}, fmt.Errorf("invalid limit: %q", raw)
		}
	}

	if raw := c.Query("status"); raw != "" {
		status := policy.InstanceStatus(strings.ToUpper(strings.TrimSpace(raw)))
		if status != policy.InstanceStatusActive && status != policy.InstanceStatusExpired {
			return policy.ListOptions{}, fmt.Errorf("invalid status: %q", raw)
		}
		opts.Status = &status
	}

	if raw := c.Query("type"); raw != "" {
		policyType, err := policy.ParsePolicyType(raw)
		if err != nil {
			return policy.ListOptions{}, err
		}
		opts.Type = &policyType
	}

	return opts, nil
}
