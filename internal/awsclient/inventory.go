package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"
)

// InventoryAPI is the subset of the SSM client used by Inventory.
type InventoryAPI interface {
	DescribeInstanceInformation(context.Context, *ssm.DescribeInstanceInformationInput, ...func(*ssm.Options)) (*ssm.DescribeInstanceInformationOutput, error)
	DescribeInstancePatchStates(context.Context, *ssm.DescribeInstancePatchStatesInput, ...func(*ssm.Options)) (*ssm.DescribeInstancePatchStatesOutput, error)
}

// DescribeInstancesAPI is the subset of the EC2 client used by Inventory.
type DescribeInstancesAPI interface {
	DescribeInstances(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Inventory answers membership and patch-state questions about hosts
type Inventory struct {
	ssm InventoryAPI
	ec2 DescribeInstancesAPI
	log *zap.Logger
}

// NewInventory creates an Inventory backed by the SSM and EC2 clients
func NewInventory(ssmClient *ssm.Client, ec2Client *ec2.Client, log *zap.Logger) *Inventory {
	return &Inventory{ssm: ssmClient, ec2: ec2Client, log: log}
}

// DescribeInstance returns the managed-instance record for instanceID,
// or nil if the host is not registered with Systems Manager.
func (i *Inventory) DescribeInstance(ctx context.Context, instanceID string) (*Instance, error) {
	out, err := i.ssm.DescribeInstanceInformation(ctx, &ssm.DescribeInstanceInformationInput{
		Filters: []ssmtypes.InstanceInformationStringFilter{
			{Key: aws.String("InstanceIds"), Values: []string{instanceID}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance information: %w", err)
	}

	for _, info := range out.InstanceInformationList {
		if aws.ToString(info.InstanceId) != instanceID {
			continue
		}
		i.log.Debug("Found managed instance",
			zap.String("instance", instanceID),
			zap.String("ping_status", string(info.PingStatus)),
		)
		return &Instance{
			InstanceID:   instanceID,
			PingStatus:   string(info.PingStatus),
			PlatformName: aws.ToString(info.PlatformName),
			PlatformType: string(info.PlatformType),
			AgentVersion: aws.ToString(info.AgentVersion),
			ComputerName: aws.ToString(info.ComputerName),
			LastPing:     aws.ToTime(info.LastPingDateTime),
		}, nil
	}
	return nil, nil
}

// PatchState returns the patch summary for instanceID, or nil if the patch
// manager has not recorded one yet.
func (i *Inventory) PatchState(ctx context.Context, instanceID string) (*PatchState, error) {
	out, err := i.ssm.DescribeInstancePatchStates(ctx, &ssm.DescribeInstancePatchStatesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("describe instance patch states: %w", err)
	}
	if len(out.InstancePatchStates) == 0 {
		return nil, nil
	}

	s := out.InstancePatchStates[0]
	return &PatchState{
		InstanceID:         aws.ToString(s.InstanceId),
		BaselineID:         aws.ToString(s.BaselineId),
		PatchGroup:         aws.ToString(s.PatchGroup),
		MissingCount:       int(s.MissingCount),
		FailedCount:        int(s.FailedCount),
		InstalledCount:     int(s.InstalledCount),
		InstalledOther:     int(s.InstalledOtherCount),
		NotApplicableCount: int(s.NotApplicableCount),
		Operation:          string(s.Operation),
		OperationStart:     aws.ToTime(s.OperationStartTime),
		OperationEnd:       aws.ToTime(s.OperationEndTime),
	}, nil
}

// InstanceDetails returns the EC2 view of instanceID, or nil if EC2 does not
// know it (hybrid "mi-" instances are registered with SSM only).
func (i *Inventory) InstanceDetails(ctx context.Context, instanceID string) (*InstanceDetails, error) {
	out, err := i.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if IsErrorCode(err, "InvalidInstanceID.NotFound") {
		i.log.Debug("Instance unknown to EC2", zap.String("instance", instanceID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("describe instances: %w", err)
	}

	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if aws.ToString(inst.InstanceId) != instanceID {
				continue
			}
			d := &InstanceDetails{
				InstanceID:   instanceID,
				InstanceType: string(inst.InstanceType),
				Platform:     aws.ToString(inst.PlatformDetails),
			}
			if inst.State != nil {
				d.State = string(inst.State.Name)
			}
			for _, tag := range inst.Tags {
				if aws.ToString(tag.Key) == "Name" {
					d.Name = aws.ToString(tag.Value)
				}
			}
			return d, nil
		}
	}
	return nil, nil
}
