package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"
)

// maxAutomationPages caps how far back ListExecutions pages. The service
// returns the newest runs first.
const maxAutomationPages = 5

// Automation lists and inspects remediation runs
type Automation struct {
	api ssm.DescribeAutomationExecutionsAPIClient
	log *zap.Logger
}

// NewAutomation creates an Automation backed by the SSM client
func NewAutomation(client *ssm.Client, log *zap.Logger) *Automation {
	return &Automation{api: client, log: log}
}

// ListExecutions returns recent runs whose document name starts with prefix.
func (a *Automation) ListExecutions(ctx context.Context, prefix string) ([]Execution, error) {
	p := ssm.NewDescribeAutomationExecutionsPaginator(a.api, &ssm.DescribeAutomationExecutionsInput{
		Filters: []ssmtypes.AutomationExecutionFilter{
			{Key: ssmtypes.AutomationExecutionFilterKeyDocumentNamePrefix, Values: []string{prefix}},
		},
	})

	var runs []Execution
	for page := 0; p.HasMorePages() && page < maxAutomationPages; page++ {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe automation executions: %w", err)
		}
		for _, m := range out.AutomationExecutionMetadataList {
			runs = append(runs, executionFromMetadata(m))
		}
	}

	a.log.Debug("Listed automation executions",
		zap.String("prefix", prefix),
		zap.Int("count", len(runs)),
	)
	return runs, nil
}

// ExecutionStatus returns the current status of the run with the given ID.
func (a *Automation) ExecutionStatus(ctx context.Context, executionID string) (ExecutionStatus, error) {
	out, err := a.api.DescribeAutomationExecutions(ctx, &ssm.DescribeAutomationExecutionsInput{
		Filters: []ssmtypes.AutomationExecutionFilter{
			{Key: ssmtypes.AutomationExecutionFilterKeyExecutionId, Values: []string{executionID}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe automation execution %s: %w", executionID, err)
	}
	if len(out.AutomationExecutionMetadataList) == 0 {
		return "", fmt.Errorf("automation execution %s not found", executionID)
	}
	return ExecutionStatus(out.AutomationExecutionMetadataList[0].AutomationExecutionStatus), nil
}

func executionFromMetadata(m ssmtypes.AutomationExecutionMetadata) Execution {
	e := Execution{
		ExecutionID:  aws.ToString(m.AutomationExecutionId),
		DocumentName: aws.ToString(m.DocumentName),
		Status:       ExecutionStatus(m.AutomationExecutionStatus),
		StartTime:    aws.ToTime(m.ExecutionStartTime),
		Target:       aws.ToString(m.Target),
	}
	for _, t := range m.Targets {
		e.Targets = append(e.Targets, Target{Key: aws.ToString(t.Key), Values: t.Values})
	}
	if m.ResolvedTargets != nil {
		e.ResolvedTargets = m.ResolvedTargets.ParameterValues
	}
	return e
}
