package e2e

import (
	"context"
	"fmt"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/auditlog"
)

// Package-level shared state, set by TestMain and used by all subtests.
var (
	testLogger *zap.Logger
	testStore  *auditlog.Store
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("riskline_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// seedSchedule inserts a small equipment schedule so the comparison function
// has rows to return. Dates are relative to the database clock so variance
// and horizon assertions hold whenever the suite runs. One item ships late,
// one early, one on the day.
func seedSchedule(ctx context.Context) error {
	rows := []struct {
		code, name             string
		dueOffset, deliveryOff int
		mfg, project           string
	}{
		{"EQ-1001", "Gas Turbine Rotor", 30, 65, "Germany", "Brazil"},
		{"EQ-1002", "Heat Exchanger Bundle", 60, 53, "South Korea", "Brazil"},
		{"EQ-1003", "Control Valve Skid", 10, 10, "United States", "Brazil"},
	}
	for _, r := range rows {
		_, err := testStore.Pool().Exec(ctx, `
			INSERT INTO equipment_schedule
				(equipment_code, equipment_name, p6_due_date, delivery_date,
				 manufacturing_country, project_country)
			VALUES ($1, $2, CURRENT_DATE + $3, CURRENT_DATE + $4, $5, $6)
			ON CONFLICT (equipment_code) DO NOTHING`,
			r.code, r.name, r.dueOffset, r.deliveryOff, r.mfg, r.project)
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.code, err)
		}
	}
	return nil
}
