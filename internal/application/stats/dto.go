package stats

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response shapes for the statistics endpoints. Field names are part of
// the external contract consumed by the dashboard UI, so they are
// camelCase and must not change.

// DashboardStats is the landing-page summary with month-over-month deltas
type DashboardStats struct {
	TotalLeads        int64   `json:"totalLeads"`
	TotalClients      int64   `json:"totalClients"`
	ActivePolicies    int64   `json:"activePolicies"`
	MonthlyCommission float64 `json:"monthlyCommission"`
	LeadsChange       float64 `json:"leadsChange"`
	ClientsChange     float64 `json:"clientsChange"`
	PoliciesChange    float64 `json:"policiesChange"`
	CommissionChange  float64 `json:"commissionChange"`
}

// ProviderCount is one provider's share of templates and instances
type ProviderCount struct {
	Provider      string `json:"provider"`
	TemplateCount int64  `json:"templateCount"`
	InstanceCount int64  `json:"instanceCount"`
}

// TypeCount is one policy type's share of templates and instances
type TypeCount struct {
	PolicyType    string `json:"policyType"`
	TemplateCount int64  `json:"templateCount"`
	InstanceCount int64  `json:"instanceCount"`
}

// PolicyTemplateStats summarizes the template catalog for the list page
type PolicyTemplateStats struct {
	TotalTemplates  int64           `json:"totalTemplates"`
	TotalInstances  int64           `json:"totalInstances"`
	ActiveInstances int64           `json:"activeInstances"`
	DistinctClients int64           `json:"distinctClients"`
	TopProviders    []ProviderCount `json:"topProviders"`
	TypeBreakdown   []TypeCount     `json:"typeBreakdown"`
}

// PolicyDetailStats summarizes one template for its detail page
type PolicyDetailStats struct {
	TemplateID        string  `json:"templateId"`
	ClientCount       int64   `json:"clientCount"`
	ActiveInstances   int64   `json:"activeInstances"`
	ExpiredInstances  int64   `json:"expiredInstances"`
	TotalPremium      float64 `json:"totalPremium"`
	AveragePremium    float64 `json:"averagePremium"`
	TotalCommission   float64 `json:"totalCommission"`
	ExpiringThisMonth int64   `json:"expiringThisMonth"`
}

// ExpiringInstance is one soonest-expiring instance summary
type ExpiringInstance struct {
	InstanceID      string    `json:"instanceId"`
	ClientName      string    `json:"clientName"`
	PolicyNumber    string    `json:"policyNumber"`
	ExpiryDate      time.Time `json:"expiryDate"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}

// ExpiryTrackingStats buckets instances by proximity to expiry
type ExpiryTrackingStats struct {
	ExpiringThisWeek  int64              `json:"expiringThisWeek"`
	ExpiringThisMonth int64              `json:"expiringThisMonth"`
	ExpiringNextMonth int64              `json:"expiringNextMonth"`
	ExpiredLastMonth  int64              `json:"expiredLastMonth"`
	Upcoming          []ExpiringInstance `json:"upcoming"`
}

// TemplateVolume ranks one template by subscription volume
type TemplateVolume struct {
	TemplateID    string  `json:"templateId"`
	PolicyNumber  string  `json:"policyNumber"`
	Provider      string  `json:"provider"`
	InstanceCount int64   `json:"instanceCount"`
	TotalRevenue  float64 `json:"totalRevenue"`
	AverageValue  float64 `json:"averageValue"`
}

// SystemLevelMetrics is the agency-wide financial and retention summary
type SystemLevelMetrics struct {
	TotalRevenue         float64          `json:"totalRevenue"`
	TotalCommission      float64          `json:"totalCommission"`
	AverageInstanceValue float64          `json:"averageInstanceValue"`
	ClientRetentionRate  float64          `json:"clientRetentionRate"`
	PolicyRenewalRate    float64          `json:"policyRenewalRate"`
	MonthlyGrowthRate    float64          `json:"monthlyGrowthRate"`
	TopTemplates         []TemplateVolume `json:"topTemplates"`
}

// ProviderPerformanceMetrics is one provider's aggregate performance
type ProviderPerformanceMetrics struct {
	Provider             string  `json:"provider"`
	TemplateCount        int64   `json:"templateCount"`
	InstanceCount        int64   `json:"instanceCount"`
	TotalRevenue         float64 `json:"totalRevenue"`
	AverageInstanceValue float64 `json:"averageInstanceValue"`
	ActiveRatio          float64 `json:"activeRatio"`
	ExpiryRate           float64 `json:"expiryRate"`
}

// PolicyTypePerformanceMetrics is one policy type's aggregate performance
type PolicyTypePerformanceMetrics struct {
	PolicyType           string  `json:"policyType"`
	TemplateCount        int64   `json:"templateCount"`
	InstanceCount        int64   `json:"instanceCount"`
	TotalRevenue         float64 `json:"totalRevenue"`
	AverageInstanceValue float64 `json:"averageInstanceValue"`
	PopularityRank       int     `json:"popularityRank"`
	GrowthRate           float64 `json:"growthRate"`
}

// toFloat64 converts a decimal amount at the DTO boundary
func toFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
