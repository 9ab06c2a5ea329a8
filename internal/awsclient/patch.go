package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/config"
)

// CommandAPI is the subset of the SSM client used by PatchOperator.
type CommandAPI interface {
	SendCommand(context.Context, *ssm.SendCommandInput, ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	ssm.GetCommandInvocationAPIClient
}

// PatchOperator issues patch-baseline commands and waits for them
type PatchOperator struct {
	api CommandAPI
	cfg config.ScanConfig
	log *zap.Logger
}

// NewPatchOperator creates a PatchOperator backed by the SSM client
func NewPatchOperator(cfg *config.Config, client *ssm.Client, log *zap.Logger) *PatchOperator {
	return &PatchOperator{api: client, cfg: cfg.Scan, log: log}
}

// StartScan sends the patch-baseline document with the configured operation
// (Scan by default) to instanceID and returns the command ID.
func (p *PatchOperator) StartScan(ctx context.Context, instanceID string) (string, error) {
	out, err := p.api.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName:    aws.String(p.cfg.Document),
		DocumentVersion: aws.String(p.cfg.DocumentVersion),
		Targets: []ssmtypes.Target{
			{Key: aws.String("InstanceIds"), Values: []string{instanceID}},
		},
		Parameters:     map[string][]string{"Operation": {p.cfg.Operation}},
		TimeoutSeconds: aws.Int32(int32(p.cfg.TimeoutSeconds)),
		Comment:        aws.String("patch compliance remediation check"),
	})
	if err != nil {
		return "", fmt.Errorf("send command %s: %w", p.cfg.Document, err)
	}
	if out.Command == nil || aws.ToString(out.Command.CommandId) == "" {
		return "", fmt.Errorf("send command %s: response carried no command ID", p.cfg.Document)
	}

	commandID := aws.ToString(out.Command.CommandId)
	p.log.Debug("Patch command sent",
		zap.String("command_id", commandID),
		zap.String("instance", instanceID),
		zap.String("operation", p.cfg.Operation),
	)
	return commandID, nil
}

// WaitForCommand blocks until the command invocation on instanceID succeeds.
// It polls every PollDelay seconds for at most MaxAttempts polls; a failed,
// cancelled or timed-out invocation, or running out of attempts, is an error.
func (p *PatchOperator) WaitForCommand(ctx context.Context, commandID, instanceID string) error {
	delay := time.Duration(p.cfg.PollDelay) * time.Second
	maxWait := delay * time.Duration(p.cfg.MaxAttempts)

	waiter := ssm.NewCommandExecutedWaiter(p.api, func(o *ssm.CommandExecutedWaiterOptions) {
		o.MinDelay = delay
		o.MaxDelay = delay
	})

	err := waiter.Wait(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(instanceID),
	}, maxWait)
	if err != nil {
		return fmt.Errorf("wait for command %s: %w", commandID, err)
	}
	return nil
}
