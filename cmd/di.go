package cmd

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/remediation"
	"github.com/kidoz/patch-compliance-check/internal/report"
)

func initTester(cfg *config.Config, log *zap.Logger, out *report.Reporter) (*remediation.Tester, error) {
	var t *remediation.Tester
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log, out),
		remediation.Module,
		fx.Populate(&t),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
