// Package awsclient provides the AWS collaborators the deployment
// orchestrator talks to: the S3-backed bundle store and the CodeDeploy
// deployment service.
package awsclient

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/codedeploy"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/imranansari/codedeploy-task/config"
)

// Clients bundles the AWS service clients built from one shared session.
type Clients struct {
	S3         *s3.S3
	CodeDeploy *codedeploy.CodeDeploy
}

// New builds the AWS service clients. Credentials come from the default
// chain (environment, shared config, instance role); region and endpoint
// can be overridden through configuration, the latter for local stacks.
func New(cfg config.AWSConfig) (*Clients, error) {
	awsCfg := aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.S3ForcePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
		Config:            awsCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &Clients{
		S3:         s3.New(sess),
		CodeDeploy: codedeploy.New(sess),
	}, nil
}
