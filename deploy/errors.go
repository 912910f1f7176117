package deploy

import "errors"

// Orchestration errors. Every stage either completes fully or surfaces
// exactly one of these, wrapped with the identifying context (application,
// deployment group, bucket/key, deployment ID). Nothing is retried inside
// a run; the caller re-invokes the task.
var (
	// ErrApplicationNotFound is returned when the target application does
	// not exist.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrDeploymentGroupNotFound is returned when the deployment group
	// does not exist under the target application.
	ErrDeploymentGroupNotFound = errors.New("deployment group not found")

	// ErrRevisionObjectNotFound is returned when the pre-uploaded revision
	// object is missing from the bucket.
	ErrRevisionObjectNotFound = errors.New("revision object not found")

	// ErrUnknownRevisionSource is returned when the revision source is
	// neither the workspace nor the object store. Configuration validation
	// rejects such values first, so reaching it means a caller bypassed
	// validation.
	ErrUnknownRevisionSource = errors.New("unknown revision source")

	// ErrUploadFailed is returned when the revision bundle could not be
	// uploaded.
	ErrUploadFailed = errors.New("bundle upload failed")

	// ErrArchiveCreationFailed is returned when the workspace directory
	// could not be packaged into an archive.
	ErrArchiveCreationFailed = errors.New("archive creation failed")

	// ErrDeploymentSubmissionFailed is returned when the create-deployment
	// call is rejected by the service.
	ErrDeploymentSubmissionFailed = errors.New("deployment submission failed")

	// ErrDeploymentWaitFailed is returned when the deployment reaches a
	// failure state, a poll call errors, or all attempts are exhausted.
	ErrDeploymentWaitFailed = errors.New("deployment did not complete successfully")
)
