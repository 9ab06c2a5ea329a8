package awsclient

import "go.uber.org/fx"

// Module provides the AWS SDK clients and the adapters built on them.
var Module = fx.Module("awsclient",
	fx.Provide(
		ProvideAWSConfig,
		ProvideSSMClient,
		ProvideConfigServiceClient,
		ProvideEC2Client,
		ProvideSTSClient,
		NewInventory,
		NewPatchOperator,
		NewCompliance,
		NewAutomation,
		NewIdentityResolver,
	),
)
