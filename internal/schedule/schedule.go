package schedule

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/risk"
)

// Item is one equipment schedule row with its derived risk fields. Items are
// read-only inputs; risk percentage and category have no identity of their own.
type Item struct {
	EquipmentCode        string  `json:"equipment_code"`
	EquipmentName        string  `json:"equipment_name"`
	P6DueDate            string  `json:"p6_due_date"`
	DeliveryDate         string  `json:"delivery_date"`
	ManufacturingCountry string  `json:"manufacturing_country"`
	ProjectCountry       string  `json:"project_country"`
	DaysVariance         int     `json:"days_variance"`
	DaysUntilDue         int     `json:"days_until_due"`
	RiskPercentage       float64 `json:"risk_percentage"`
	RiskLevel            string  `json:"risk_level"`
}

// Source provides the current equipment schedule comparison data.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// PGSource fetches schedule rows through the get_schedule_comparison_data
// database function, with the same retry contract as the audit store.
type PGSource struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPGSource creates a schedule source over an existing connection pool.
func NewPGSource(db *pgxpool.Pool, logger *zap.Logger) *PGSource {
	return &PGSource{db: db, logger: logger}
}

// Fetch returns the full current schedule. An empty schedule is a valid
// result, not an error.
func (s *PGSource) Fetch(ctx context.Context) ([]Item, error) {
	var items []Item
	err := auditlog.Retry(ctx, s.logger, "schedule comparison rpc", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `
			SELECT equipment_code, equipment_name, p6_due_date, delivery_date,
			       manufacturing_country, project_country, days_variance, days_until_due
			FROM get_schedule_comparison_data()`)
		if err != nil {
			return err
		}
		defer rows.Close()
		items = items[:0]
		for rows.Next() {
			var it Item
			var p6Due, delivery time.Time
			if err := rows.Scan(&it.EquipmentCode, &it.EquipmentName, &p6Due, &delivery,
				&it.ManufacturingCountry, &it.ProjectCountry,
				&it.DaysVariance, &it.DaysUntilDue); err != nil {
				return err
			}
			it.P6DueDate = p6Due.Format("2006-01-02")
			it.DeliveryDate = delivery.Format("2006-01-02")
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].RiskPercentage = risk.Percentage(items[i].DaysVariance, items[i].DaysUntilDue)
		items[i].RiskLevel = string(risk.Categorize(items[i].RiskPercentage))
	}
	return items, nil
}

// MarshalItems serialises schedule items for tool output. An empty or nil
// slice serialises to "[]", never null.
func MarshalItems(items []Item) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
