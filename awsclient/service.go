package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/codedeploy"
	"github.com/aws/aws-sdk-go/service/codedeploy/codedeployiface"
	"github.com/rs/zerolog"

	"github.com/imranansari/codedeploy-task/deploy"
)

// DeployService is the CodeDeploy-backed deployment service.
type DeployService struct {
	api    codedeployiface.CodeDeployAPI
	logger zerolog.Logger
}

// NewDeployService creates a deployment service over the given CodeDeploy
// client.
func NewDeployService(api codedeployiface.CodeDeployAPI, logger zerolog.Logger) *DeployService {
	return &DeployService{api: api, logger: logger}
}

// ApplicationExists reports whether the application is registered.
func (d *DeployService) ApplicationExists(ctx context.Context, application string) (bool, error) {
	_, err := d.api.GetApplicationWithContext(ctx, &codedeploy.GetApplicationInput{
		ApplicationName: aws.String(application),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == codedeploy.ErrCodeApplicationDoesNotExistException {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeploymentGroupExists reports whether the group exists under the
// application.
func (d *DeployService) DeploymentGroupExists(ctx context.Context, application, group string) (bool, error) {
	_, err := d.api.GetDeploymentGroupWithContext(ctx, &codedeploy.GetDeploymentGroupInput{
		ApplicationName:     aws.String(application),
		DeploymentGroupName: aws.String(group),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == codedeploy.ErrCodeDeploymentGroupDoesNotExistException {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateDeployment submits the deployment and returns the service-assigned
// deployment ID.
func (d *DeployService) CreateDeployment(ctx context.Context, sub deploy.Submission) (string, error) {
	input := &codedeploy.CreateDeploymentInput{
		ApplicationName:               aws.String(sub.Application),
		DeploymentGroupName:           aws.String(sub.DeploymentGroup),
		IgnoreApplicationStopFailures: aws.Bool(sub.IgnoreApplicationStopFailures),
		UpdateOutdatedInstancesOnly:   aws.Bool(sub.UpdateOutdatedInstancesOnly),
		Revision: &codedeploy.RevisionLocation{
			RevisionType: aws.String("S3"),
			S3Location: &codedeploy.S3Location{
				Bucket:     aws.String(sub.Revision.Bucket),
				Key:        aws.String(sub.Revision.Key),
				BundleType: aws.String(sub.Revision.BundleType),
			},
		},
	}
	if sub.FileExistsBehavior != "" {
		input.FileExistsBehavior = aws.String(sub.FileExistsBehavior)
	}
	if sub.Description != "" {
		input.Description = aws.String(sub.Description)
	}

	out, err := d.api.CreateDeploymentWithContext(ctx, input)
	if err != nil {
		return "", err
	}

	id := aws.StringValue(out.DeploymentId)
	d.logger.Debug().
		Str("application", sub.Application).
		Str("deployment_id", id).
		Msg("Created deployment")
	return id, nil
}

// Status returns one poll of the deployment state, carrying the service
// error detail when the deployment has one.
func (d *DeployService) Status(ctx context.Context, deploymentID string) (deploy.DeploymentStatus, error) {
	out, err := d.api.GetDeploymentWithContext(ctx, &codedeploy.GetDeploymentInput{
		DeploymentId: aws.String(deploymentID),
	})
	if err != nil {
		return deploy.DeploymentStatus{}, err
	}

	info := out.DeploymentInfo
	if info == nil {
		return deploy.DeploymentStatus{}, nil
	}

	status := deploy.DeploymentStatus{
		State: deploy.DeploymentState(aws.StringValue(info.Status)),
	}
	if info.ErrorInformation != nil {
		status.Message = aws.StringValue(info.ErrorInformation.Message)
	}
	return status, nil
}
