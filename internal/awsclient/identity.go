package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CallerIdentityAPI is the subset of the STS client used by IdentityResolver.
type CallerIdentityAPI interface {
	GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IdentityResolver reports which principal the credentials belong to
type IdentityResolver struct {
	api CallerIdentityAPI
}

// NewIdentityResolver creates an IdentityResolver backed by the STS client
func NewIdentityResolver(client *sts.Client) *IdentityResolver {
	return &IdentityResolver{api: client}
}

func (r *IdentityResolver) CallerIdentity(ctx context.Context) (*Identity, error) {
	out, err := r.api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("get caller identity: %w", err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
