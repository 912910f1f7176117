package deploy

import (
	"context"
	"io"
)

// RevisionSource selects where the revision bundle comes from. It is a
// closed variant: configuration validation rejects anything but the two
// constants below before a Request is ever built.
type RevisionSource string

const (
	// RevisionWorkspace deploys a local file or directory, packaging and
	// uploading it first.
	RevisionWorkspace RevisionSource = "workspace"

	// RevisionObjectStore deploys an object already present in the bucket.
	RevisionObjectStore RevisionSource = "s3"
)

// ACLNone is the sentinel ACL value meaning "do not set an ACL on upload".
const ACLNone = "none"

// Request describes one deployment. It is constructed once per invocation
// and never mutated afterwards.
type Request struct {
	// Deployment target
	Application     string `json:"application"`
	DeploymentGroup string `json:"deployment_group"`

	// Revision location
	RevisionSource RevisionSource `json:"revision_source"`
	BundlePath     string         `json:"bundle_path,omitempty"` // workspace: local file or directory
	Bucket         string         `json:"bucket"`
	BundleKey      string         `json:"bundle_key,omitempty"` // object store: existing key
	BundlePrefix   string         `json:"bundle_prefix,omitempty"`
	ArchiveACL     string         `json:"archive_acl,omitempty"` // empty or "none" disables

	// Service behavior flags, forwarded verbatim
	FileExistsBehavior            string `json:"file_exists_behavior,omitempty"`
	IgnoreApplicationStopFailures bool   `json:"ignore_application_stop_failures"`
	UpdateOutdatedInstancesOnly   bool   `json:"update_outdated_instances_only"`
	Description                   string `json:"description,omitempty"`

	// Pipeline integration
	OutputVariable string `json:"output_variable,omitempty"`
	TimeoutMinutes int    `json:"timeout_minutes"`
}

// ResolvedRevision is the object-store location a deployment is created
// from. The orchestrator produces exactly one per run, either by packaging
// and uploading the workspace bundle or by adopting the caller's key.
type ResolvedRevision struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	BundleType string `json:"bundle_type"`
}

// Submission is the create-deployment call handed to the deployment
// service.
type Submission struct {
	Application                   string           `json:"application"`
	DeploymentGroup               string           `json:"deployment_group"`
	Revision                      ResolvedRevision `json:"revision"`
	FileExistsBehavior            string           `json:"file_exists_behavior,omitempty"`
	IgnoreApplicationStopFailures bool             `json:"ignore_application_stop_failures"`
	UpdateOutdatedInstancesOnly   bool             `json:"update_outdated_instances_only"`
	Description                   string           `json:"description,omitempty"`
}

// DeploymentState is a deployment status reported by the service.
type DeploymentState string

const (
	StateCreated    DeploymentState = "Created"
	StateQueued     DeploymentState = "Queued"
	StateInProgress DeploymentState = "InProgress"
	StateBaking     DeploymentState = "Baking"
	StateReady      DeploymentState = "Ready"
	StateSucceeded  DeploymentState = "Succeeded"
	StateFailed     DeploymentState = "Failed"
	StateStopped    DeploymentState = "Stopped"
)

// Terminal reports whether no further transition can occur from s.
func (s DeploymentState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateStopped:
		return true
	}
	return false
}

// DeploymentStatus is one poll result.
type DeploymentStatus struct {
	State   DeploymentState `json:"state"`
	Message string          `json:"message,omitempty"` // service error detail, if any
}

// ObjectStore is the bundle storage collaborator. Head reports existence
// without retrieving the object; a missing object is (false, nil), an
// error means the probe itself failed.
type ObjectStore interface {
	Head(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker, acl string) error
}

// DeploymentService is the fleet deployment collaborator. The existence
// probes follow the same (false, nil) convention as ObjectStore.Head.
type DeploymentService interface {
	ApplicationExists(ctx context.Context, application string) (bool, error)
	DeploymentGroupExists(ctx context.Context, application, group string) (bool, error)
	CreateDeployment(ctx context.Context, sub Submission) (deploymentID string, err error)
	Status(ctx context.Context, deploymentID string) (DeploymentStatus, error)
}
