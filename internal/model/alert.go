package model

import "time"

type AlertStatus string

const (
	AlertStatusOpen           AlertStatus = "OPEN"
	AlertStatusEscalated      AlertStatus = "ESCALATED"
	AlertStatusCompleted      AlertStatus = "COMPLETED"
	AlertStatusContractBreach AlertStatus = "CONTRACT_BREACH"
)

// Terminal reports whether the status is an end state of the lifecycle.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusCompleted || s == AlertStatusContractBreach
}

type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "CRITICAL"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityInfo     AlertSeverity = "INFO"
)

type AlertType string

const (
	AlertTypeLowConfidence     AlertType = "LOW_CONFIDENCE"
	AlertTypeConsecutiveGaps   AlertType = "CONSECUTIVE_GAPS"
	AlertTypeProfiledAnomaly   AlertType = "PROFILED_ANOMALY"
	AlertTypeHighGapPercentage AlertType = "HIGH_GAP_PERCENTAGE"
	AlertTypeMonthlyThreshold  AlertType = "MONTHLY_THRESHOLD"
)

// GapAlert is one detected data-collection gap surfaced for operator attention.
// Field names follow the upstream fleet-data API wire format.
type GapAlert struct {
	ID              int64         `json:"id"`
	VehicleID       int64         `json:"vehicleId"`
	PDFReportID     *int64        `json:"pdfReportId"`
	AlertType       AlertType     `json:"alertType"`
	Severity        AlertSeverity `json:"severity"`
	DetectedAt      time.Time     `json:"detectedAt"`
	Description     string        `json:"description"`
	Status          AlertStatus   `json:"status"`
	ResolvedAt      *time.Time    `json:"resolvedAt,omitempty"`
	ResolutionNotes string        `json:"resolutionNotes,omitempty"`
	VehiclePlate    string        `json:"vehiclePlate,omitempty"`
	VehicleLabel    string        `json:"vehicleLabel,omitempty"`
	CompanyName     string        `json:"companyName,omitempty"`
}

// Eligible reports whether the alert can be opened for validation.
// Requires a generated report and a non-terminal, non-in-progress status.
func (a GapAlert) Eligible() bool {
	return a.PDFReportID != nil && (a.Status == AlertStatusOpen || a.Status == AlertStatusEscalated)
}

// ResolutionConsistent checks the resolved-at invariant: a resolution
// timestamp is present iff the alert reached a terminal status.
func (a GapAlert) ResolutionConsistent() bool {
	return (a.ResolvedAt != nil) == a.Status.Terminal()
}

// GapAlertPage is one server page of alerts plus pagination echo.
type GapAlertPage struct {
	Data       []GapAlert `json:"data"`
	TotalCount int        `json:"totalCount"`
	TotalPages int        `json:"totalPages"`
	Page       int        `json:"page"`
}

// GapAlertStats buckets the unfiltered alert population by status and severity.
// Recomputed server-side on every fetch; never derived from a filtered page.
type GapAlertStats struct {
	TotalAlerts          int `json:"totalAlerts"`
	OpenAlerts           int `json:"openAlerts"`
	EscalatedAlerts      int `json:"escalatedAlerts"`
	CompletedAlerts      int `json:"completedAlerts"`
	ContractBreachAlerts int `json:"contractBreachAlerts"`
	CriticalAlerts       int `json:"criticalAlerts"`
	WarningAlerts        int `json:"warningAlerts"`
	InfoAlerts           int `json:"infoAlerts"`
}
