package remediation

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/awsclient"
	"github.com/kidoz/patch-compliance-check/internal/config"
	"github.com/kidoz/patch-compliance-check/internal/report"
)

// Module provides a Tester wired to the AWS adapters.
var Module = fx.Module("remediation",
	fx.Provide(ProvideTester),
	awsclient.Module,
)

// ProvideTester assembles a Tester from its injected dependencies.
func ProvideTester(
	cfg *config.Config,
	log *zap.Logger,
	out *report.Reporter,
	inventory *awsclient.Inventory,
	patches *awsclient.PatchOperator,
	compliance *awsclient.Compliance,
	automation *awsclient.Automation,
	identity *awsclient.IdentityResolver,
) *Tester {
	return New(cfg, log, out, inventory, patches, compliance, automation, identity)
}
