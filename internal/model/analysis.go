package model

import (
	"encoding/json"
	"time"
)

// ConfidenceBand classifies a per-gap confidence score for display.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Band maps a confidence score (0-100) to its display band.
// Thresholds: high >= 80, medium 60-79, low < 60.
func Band(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 80:
		return BandHigh
	case confidence >= 60:
		return BandMedium
	default:
		return BandLow
	}
}

// BarWidth returns the proportional bar width percent for a confidence score,
// clamped to [0, 100].
func BarWidth(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// OutageInfo correlates a gap with a known upstream outage window.
type OutageInfo struct {
	OutageType   string  `json:"outageType"`
	OutageBrand  string  `json:"outageBrand,omitempty"`
	BonusApplied float64 `json:"bonusApplied"`
}

// GapFactors carries the externally computed classification signals for a gap.
type GapFactors struct {
	IsTechnicalFailure bool `json:"isTechnicalFailure"`
}

// Gap is one missing-telemetry window inside an analysis. Gaps are read-only
// evidence; the client never mutates them individually.
type Gap struct {
	Timestamp     time.Time   `json:"timestamp"`
	Confidence    float64     `json:"confidence"`
	Justification string      `json:"justification"`
	Factors       GapFactors  `json:"factors"`
	OutageInfo    *OutageInfo `json:"outageInfo,omitempty"`
}

// Band returns the display band for this gap's confidence.
func (g Gap) Band() ConfidenceBand {
	return Band(g.Confidence)
}

// MarshalJSON adds the derived display fields so every consumer renders the
// same banding and bar width instead of re-deriving the thresholds.
func (g Gap) MarshalJSON() ([]byte, error) {
	type gap Gap
	return json.Marshal(struct {
		gap
		Band     ConfidenceBand `json:"band"`
		BarWidth float64        `json:"barWidth"`
	}{gap(g), g.Band(), BarWidth(g.Confidence)})
}

// ConfidenceSummary buckets an analysis' gaps by confidence band.
type ConfidenceSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// OutageSummary aggregates the gaps explained by known outages.
type OutageSummary struct {
	GapsExplained        int     `json:"gapsExplained"`
	PercentageExplained  float64 `json:"percentageExplained"`
	TotalDowntimeMinutes int     `json:"totalDowntimeMinutes"`
	AverageConfidence    float64 `json:"averageConfidence"`
}

// GapAnalysis is the per-report bundle returned by the analysis endpoint.
type GapAnalysis struct {
	CompanyName       string            `json:"companyName"`
	VehicleID         int64             `json:"vehicleId"`
	VehiclePlate      string            `json:"vehiclePlate,omitempty"`
	PeriodStart       time.Time         `json:"periodStart"`
	PeriodEnd         time.Time         `json:"periodEnd"`
	TotalGaps         int               `json:"totalGaps"`
	AverageConfidence float64           `json:"averageConfidence"`
	Summary           ConfidenceSummary `json:"summary"`
	Outages           OutageSummary     `json:"outages"`
	Gaps              []Gap             `json:"gaps"`
}

// HasGaps reports whether there is any evidence to act on. With zero gaps the
// terminal actions stay disabled and the no-gaps success state is shown.
func (a GapAnalysis) HasGaps() bool {
	return a.TotalGaps > 0
}
