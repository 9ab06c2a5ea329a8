package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	cstypes "github.com/aws/aws-sdk-go-v2/service/configservice/types"
	"go.uber.org/zap"

	"github.com/kidoz/patch-compliance-check/internal/config"
)

// ComplianceAPI is the subset of the Config client used by Compliance.
type ComplianceAPI interface {
	StartConfigRulesEvaluation(context.Context, *configservice.StartConfigRulesEvaluationInput, ...func(*configservice.Options)) (*configservice.StartConfigRulesEvaluationOutput, error)
	GetComplianceDetailsByResource(context.Context, *configservice.GetComplianceDetailsByResourceInput, ...func(*configservice.Options)) (*configservice.GetComplianceDetailsByResourceOutput, error)
}

// maxCompliancePages caps NextToken paging for a single resource.
const maxCompliancePages = 20

// Compliance triggers and reads compliance-rule evaluations
type Compliance struct {
	api          ComplianceAPI
	resourceType string
	log          *zap.Logger
}

// NewCompliance creates a Compliance backed by the Config client
func NewCompliance(cfg *config.Config, client *configservice.Client, log *zap.Logger) *Compliance {
	return &Compliance{api: client, resourceType: cfg.Compliance.ResourceType, log: log}
}

// StartEvaluation asks the compliance engine to re-evaluate ruleName.
// It returns once the request is accepted.
func (c *Compliance) StartEvaluation(ctx context.Context, ruleName string) error {
	_, err := c.api.StartConfigRulesEvaluation(ctx, &configservice.StartConfigRulesEvaluationInput{
		ConfigRuleNames: []string{ruleName},
	})
	if err != nil {
		return fmt.Errorf("start evaluation of %s: %w", ruleName, err)
	}
	c.log.Debug("Rule evaluation started", zap.String("rule", ruleName))
	return nil
}

// RuleCompliance returns the compliance type recorded for (ruleName, resourceID).
// found is false when the engine holds no evaluation for that pair.
func (c *Compliance) RuleCompliance(ctx context.Context, ruleName, resourceID string) (ComplianceType, bool, error) {
	in := &configservice.GetComplianceDetailsByResourceInput{
		ResourceType: aws.String(c.resourceType),
		ResourceId:   aws.String(resourceID),
		ComplianceTypes: []cstypes.ComplianceType{
			cstypes.ComplianceTypeNonCompliant,
			cstypes.ComplianceTypeCompliant,
		},
	}

	for page := 0; page < maxCompliancePages; page++ {
		out, err := c.api.GetComplianceDetailsByResource(ctx, in)
		if err != nil {
			return "", false, fmt.Errorf("get compliance details for %s: %w", resourceID, err)
		}

		for _, r := range out.EvaluationResults {
			if evaluationRuleName(r) != ruleName {
				continue
			}
			c.log.Debug("Compliance result",
				zap.String("rule", ruleName),
				zap.String("resource", resourceID),
				zap.String("compliance", string(r.ComplianceType)),
			)
			return ComplianceType(r.ComplianceType), true, nil
		}

		if aws.ToString(out.NextToken) == "" {
			break
		}
		in.NextToken = out.NextToken
	}
	return "", false, nil
}

func evaluationRuleName(r cstypes.EvaluationResult) string {
	if r.EvaluationResultIdentifier == nil || r.EvaluationResultIdentifier.EvaluationResultQualifier == nil {
		return ""
	}
	return aws.ToString(r.EvaluationResultIdentifier.EvaluationResultQualifier.ConfigRuleName)
}
