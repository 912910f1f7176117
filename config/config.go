package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/imranansari/codedeploy-task/deploy"
)

// DefaultTimeoutMinutes bounds the completion wait when the caller does
// not configure one.
const DefaultTimeoutMinutes = 30

// Config holds all configuration for the task.
type Config struct {
	// AWS client configuration
	AWS AWSConfig `envPrefix:"AWS_"`

	// Deployment task inputs
	Deploy DeployConfig `envPrefix:"DEPLOY_"`

	// Optional GitHub deployment-status mirror
	GitHub GitHubConfig `envPrefix:"GITHUB_"`

	// Process configuration
	App AppConfig `envPrefix:"APP_"`

	// Pipeline output binding
	Pipeline PipelineConfig

	// Secrets (loaded from files)
	Secrets SecretsConfig
}

type AWSConfig struct {
	Region string `env:"REGION"`

	// Endpoint overrides the service endpoints, for local stacks.
	// Path-style addressing is usually required alongside it.
	Endpoint         string `env:"ENDPOINT_URL"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`
}

type DeployConfig struct {
	Application     string `env:"APPLICATION"`
	DeploymentGroup string `env:"DEPLOYMENT_GROUP"`

	// RevisionSource is "workspace" (package and upload a local bundle)
	// or "s3" (deploy an object already in the bucket).
	RevisionSource string `env:"REVISION_SOURCE" envDefault:"workspace"`
	BundlePath     string `env:"BUNDLE_PATH"`
	Bucket         string `env:"BUCKET"`
	BundleKey      string `env:"BUNDLE_KEY"`
	BundlePrefix   string `env:"BUNDLE_PREFIX"`
	ArchiveACL     string `env:"ARCHIVE_ACL" envDefault:"none"`

	FileExistsBehavior            string `env:"FILE_EXISTS_BEHAVIOR" envDefault:"DISALLOW"`
	IgnoreApplicationStopFailures bool   `env:"IGNORE_APPLICATION_STOP_FAILURES"`
	UpdateOutdatedInstancesOnly   bool   `env:"UPDATE_OUTDATED_INSTANCES_ONLY"`
	Description                   string `env:"DESCRIPTION"`

	OutputVariable string `env:"OUTPUT_VARIABLE"`
	TimeoutMinutes int    `env:"TIMEOUT_MINUTES" envDefault:"30"`
}

type GitHubConfig struct {
	// AppID enables the status mirror; zero leaves it off.
	AppID int64 `env:"APP_ID"`

	// EnterpriseURL points the mirror at a GitHub Enterprise instance.
	// Empty means github.com.
	EnterpriseURL  string `env:"ENTERPRISE_URL"`
	PrivateKeyPath string `env:"PRIVATE_KEY_PATH"`

	Owner       string `env:"OWNER"`
	Repo        string `env:"REPO"`
	CommitSHA   string `env:"COMMIT_SHA"`
	Environment string `env:"DEPLOY_ENVIRONMENT" envDefault:"production"`
}

// StatusEnabled reports whether the deployment-status mirror is configured.
func (g GitHubConfig) StatusEnabled() bool {
	return g.AppID != 0
}

type AppConfig struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

type PipelineConfig struct {
	// OutputFile receives name=value lines for published outputs. The
	// default is the file GitHub Actions hands to job steps.
	OutputFile string `env:"GITHUB_OUTPUT"`
}

type SecretsConfig struct {
	GitHubPrivateKey []byte
}

// Load loads configuration from environment variables and files. It does
// not validate; commands apply flag overrides first and then call
// Validate.
func Load() (*Config, error) {
	// Load .env file if present (local development); environment variables
	// win otherwise.
	if err := godotenv.Load(); err != nil {
		// No .env file, nothing to do.
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := loadSecrets(cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	return cfg, nil
}

// loadSecrets reads the GitHub App private key when the status mirror is
// configured.
func loadSecrets(cfg *Config) error {
	if !cfg.GitHub.StatusEnabled() {
		return nil
	}

	if cfg.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY_PATH is required when GITHUB_APP_ID is set")
	}
	key, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("failed to read GitHub App private key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("GitHub App private key file %s is empty", cfg.GitHub.PrivateKeyPath)
	}
	cfg.Secrets.GitHubPrivateKey = key

	return nil
}

// Validate checks that the configuration describes a runnable deployment.
func (c *Config) Validate() error {
	d := c.Deploy

	if d.Application == "" {
		return fmt.Errorf("application name is required")
	}
	if d.DeploymentGroup == "" {
		return fmt.Errorf("deployment group name is required")
	}
	if d.Bucket == "" {
		return fmt.Errorf("bucket name is required")
	}

	if !IsValidRevisionSource(d.RevisionSource) {
		return fmt.Errorf("unknown revision source %q (valid: %v)", d.RevisionSource, ValidRevisionSources())
	}
	switch deploy.RevisionSource(d.RevisionSource) {
	case deploy.RevisionWorkspace:
		if d.BundlePath == "" {
			return fmt.Errorf("bundle path is required for the workspace revision source")
		}
	case deploy.RevisionObjectStore:
		if d.BundleKey == "" {
			return fmt.Errorf("bundle key is required for the s3 revision source")
		}
	}

	if !IsValidFileExistsBehavior(d.FileExistsBehavior) {
		return fmt.Errorf("unknown file-exists behavior %q (valid: %v)", d.FileExistsBehavior, ValidFileExistsBehaviors())
	}
	if !IsValidArchiveACL(d.ArchiveACL) {
		return fmt.Errorf("unknown archive ACL %q (valid: %v)", d.ArchiveACL, ValidArchiveACLs())
	}
	if d.TimeoutMinutes < 1 {
		return fmt.Errorf("timeout must be at least one minute")
	}

	if c.GitHub.StatusEnabled() {
		g := c.GitHub
		if g.Owner == "" || g.Repo == "" || g.CommitSHA == "" {
			return fmt.Errorf("GITHUB_OWNER, GITHUB_REPO and GITHUB_COMMIT_SHA are required when GITHUB_APP_ID is set")
		}
	}

	return nil
}
