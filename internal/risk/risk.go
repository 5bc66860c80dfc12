package risk

import (
	"encoding/json"
	"math"
)

// Category is a three-tier risk classification for a schedule item.
type Category string

const (
	Low    Category = "Low Risk"
	Medium Category = "Medium Risk"
	High   Category = "High Risk"
)

// Points returns the fixed point weight for the category.
func (c Category) Points() int {
	switch c {
	case Low:
		return 1
	case Medium:
		return 3
	default:
		return 5
	}
}

// Percentage computes the schedule risk for an item. Items already at or past
// their due date are maximal risk; dividing by a non-positive horizon is never
// attempted. The sign of daysVariance only distinguishes early from late,
// magnitude alone drives the score. Result is rounded to two decimals.
func Percentage(daysVariance, daysUntilDue int) float64 {
	if daysUntilDue <= 0 {
		return 100.0
	}
	pct := math.Abs(float64(daysVariance) / float64(daysUntilDue) * 100)
	return math.Round(pct*100) / 100
}

// Categorize maps a risk percentage onto the three tiers. Thresholds are
// closed on the lower bound: 5.0 is Medium, 15.0 is High.
func Categorize(pct float64) Category {
	switch {
	case pct < 5:
		return Low
	case pct < 15:
		return Medium
	default:
		return High
	}
}

// Flag is the wire shape tools and audit records use for a categorized risk.
type Flag struct {
	RiskFlag   string `json:"risk_flag"`
	RiskPoints int    `json:"risk_points"`
}

// CategorizeJSON returns the category as its JSON tool-output form.
func CategorizeJSON(pct float64) string {
	c := Categorize(pct)
	b, _ := json.Marshal(Flag{RiskFlag: string(c), RiskPoints: c.Points()})
	return string(b)
}
