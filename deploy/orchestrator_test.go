package deploy

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubService implements DeploymentService with overridable behavior.
// Nil fields fall back to a healthy service that accepts everything.
type stubService struct {
	applicationExists     func(ctx context.Context, application string) (bool, error)
	deploymentGroupExists func(ctx context.Context, application, group string) (bool, error)
	createDeployment      func(ctx context.Context, sub Submission) (string, error)
	status                func(ctx context.Context, deploymentID string) (DeploymentStatus, error)

	submissions []Submission
	statusPolls int
}

func (s *stubService) ApplicationExists(ctx context.Context, application string) (bool, error) {
	if s.applicationExists != nil {
		return s.applicationExists(ctx, application)
	}
	return true, nil
}

func (s *stubService) DeploymentGroupExists(ctx context.Context, application, group string) (bool, error) {
	if s.deploymentGroupExists != nil {
		return s.deploymentGroupExists(ctx, application, group)
	}
	return true, nil
}

func (s *stubService) CreateDeployment(ctx context.Context, sub Submission) (string, error) {
	s.submissions = append(s.submissions, sub)
	if s.createDeployment != nil {
		return s.createDeployment(ctx, sub)
	}
	return "d-TEST123", nil
}

func (s *stubService) Status(ctx context.Context, deploymentID string) (DeploymentStatus, error) {
	s.statusPolls++
	if s.status != nil {
		return s.status(ctx, deploymentID)
	}
	return DeploymentStatus{State: StateSucceeded}, nil
}

type putCall struct {
	bucket, key, acl string
	bodyLen          int
}

// stubStore implements ObjectStore, recording uploads. Nil fields fall
// back to an object store where everything exists and uploads succeed.
type stubStore struct {
	head func(ctx context.Context, bucket, key string) (bool, error)
	put  func(ctx context.Context, bucket, key string, body io.ReadSeeker, acl string) error

	puts []putCall
}

func (s *stubStore) Head(ctx context.Context, bucket, key string) (bool, error) {
	if s.head != nil {
		return s.head(ctx, bucket, key)
	}
	return true, nil
}

func (s *stubStore) Put(ctx context.Context, bucket, key string, body io.ReadSeeker, acl string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.puts = append(s.puts, putCall{bucket: bucket, key: key, acl: acl, bodyLen: len(data)})
	if s.put != nil {
		return s.put(ctx, bucket, key, body, acl)
	}
	return nil
}

type recordOutputs struct {
	entries map[string]string
	err     error
}

func (r *recordOutputs) Set(name, value string) error {
	if r.err != nil {
		return r.err
	}
	if r.entries == nil {
		r.entries = make(map[string]string)
	}
	r.entries[name] = value
	return nil
}

func newTestOrchestrator(store *stubStore, service *stubService, outputs Outputs) *Orchestrator {
	o := New(Config{
		Store:   store,
		Service: service,
		Outputs: outputs,
		Logger:  zerolog.Nop(),
	})
	o.pollInterval = time.Millisecond
	return o
}

func workspaceRequest(bundlePath string) Request {
	return Request{
		Application:     "web",
		DeploymentGroup: "prod",
		RevisionSource:  RevisionWorkspace,
		BundlePath:      bundlePath,
		Bucket:          "deploy-bucket",
		ArchiveACL:      ACLNone,
		TimeoutMinutes:  1,
	}
}

func TestExecuteWorkspaceDirectory(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	store := &stubStore{}
	polls := 0
	service := &stubService{
		status: func(ctx context.Context, deploymentID string) (DeploymentStatus, error) {
			if deploymentID != "d-TEST123" {
				t.Errorf("polled deployment %q, want d-TEST123", deploymentID)
			}
			polls++
			if polls < 3 {
				return DeploymentStatus{State: StateInProgress}, nil
			}
			return DeploymentStatus{State: StateSucceeded}, nil
		},
	}
	outputs := &recordOutputs{}

	req := workspaceRequest(src)
	req.BundlePrefix = "releases"
	req.OutputVariable = "deployment_id"

	o := newTestOrchestrator(store, service, outputs)
	id, err := o.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if id != "d-TEST123" {
		t.Errorf("deployment ID = %q, want d-TEST123", id)
	}

	if len(store.puts) != 1 {
		t.Fatalf("got %d uploads, want 1", len(store.puts))
	}
	up := store.puts[0]
	if up.bucket != "deploy-bucket" {
		t.Errorf("uploaded to bucket %q, want deploy-bucket", up.bucket)
	}
	if !strings.HasPrefix(up.key, "releases/web.v") || !strings.HasSuffix(up.key, ".zip") {
		t.Errorf("uploaded key %q, want releases/web.v<millis>.zip", up.key)
	}
	if up.acl != "" {
		t.Errorf("uploaded with ACL %q, want none", up.acl)
	}
	if up.bodyLen == 0 {
		t.Error("uploaded empty archive body")
	}

	if len(service.submissions) != 1 {
		t.Fatalf("got %d submissions, want 1", len(service.submissions))
	}
	sub := service.submissions[0]
	if sub.Application != "web" || sub.DeploymentGroup != "prod" {
		t.Errorf("submitted to %s/%s, want web/prod", sub.Application, sub.DeploymentGroup)
	}
	if sub.Revision.Bucket != "deploy-bucket" || sub.Revision.Key != up.key {
		t.Errorf("submitted revision %+v, want uploaded location", sub.Revision)
	}
	if sub.Revision.BundleType != "zip" {
		t.Errorf("bundle type = %q, want zip", sub.Revision.BundleType)
	}

	if got := outputs.entries["deployment_id"]; got != "d-TEST123" {
		t.Errorf("published output = %q, want d-TEST123", got)
	}

	// The synthesized archive must be gone after a successful upload.
	archivePath := filepath.Join(os.TempDir(), filepath.Base(up.key))
	if _, err := os.Stat(archivePath); !errors.Is(err, os.ErrNotExist) {
		os.Remove(archivePath)
		t.Errorf("temporary archive %s still present after success", archivePath)
	}
}

func TestExecuteWorkspaceFileNotDeleted(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "prebuilt.zip")
	writeFile(t, bundle, "zip bytes")

	store := &stubStore{}
	service := &stubService{}

	o := newTestOrchestrator(store, service, nil)
	if _, err := o.Execute(context.Background(), workspaceRequest(bundle)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(store.puts) != 1 {
		t.Fatalf("got %d uploads, want 1", len(store.puts))
	}
	if store.puts[0].key != "prebuilt.zip" {
		t.Errorf("uploaded key %q, want prebuilt.zip", store.puts[0].key)
	}

	if _, err := os.Stat(bundle); err != nil {
		t.Errorf("caller-provided bundle was removed: %v", err)
	}
}

func TestExecuteObjectStoreRevision(t *testing.T) {
	store := &stubStore{}
	service := &stubService{}
	outputs := &recordOutputs{}

	req := Request{
		Application:     "web",
		DeploymentGroup: "prod",
		RevisionSource:  RevisionObjectStore,
		Bucket:          "deploy-bucket",
		BundleKey:       "builds/web-42.tar",
		TimeoutMinutes:  1,
	}

	o := newTestOrchestrator(store, service, outputs)
	if _, err := o.Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(store.puts) != 0 {
		t.Errorf("got %d uploads for an object-store revision, want 0", len(store.puts))
	}
	sub := service.submissions[0]
	if sub.Revision.Bucket != "deploy-bucket" || sub.Revision.Key != "builds/web-42.tar" {
		t.Errorf("submitted revision %+v, want the configured key", sub.Revision)
	}
	if sub.Revision.BundleType != "tar" {
		t.Errorf("bundle type = %q, want tar", sub.Revision.BundleType)
	}

	if len(outputs.entries) != 0 {
		t.Errorf("outputs written without an output variable: %v", outputs.entries)
	}
}

func TestExecuteApplicationMissing(t *testing.T) {
	store := &stubStore{}
	service := &stubService{
		applicationExists: func(ctx context.Context, application string) (bool, error) {
			return false, nil
		},
	}

	o := newTestOrchestrator(store, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(t.TempDir()))
	if !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("err = %v, want ErrApplicationNotFound", err)
	}
	if !strings.Contains(err.Error(), "web") {
		t.Errorf("err %q does not name the application", err)
	}

	if len(store.puts) != 0 {
		t.Error("upload ran after a failed precondition")
	}
	if len(service.submissions) != 0 {
		t.Error("submission ran after a failed precondition")
	}
}

func TestExecuteGroupProbeError(t *testing.T) {
	probeErr := errors.New("api throttled")
	service := &stubService{
		deploymentGroupExists: func(ctx context.Context, application, group string) (bool, error) {
			return false, probeErr
		},
	}

	o := newTestOrchestrator(&stubStore{}, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(t.TempDir()))
	if !errors.Is(err, ErrDeploymentGroupNotFound) {
		t.Fatalf("err = %v, want ErrDeploymentGroupNotFound", err)
	}
	if !errors.Is(err, probeErr) {
		t.Errorf("err %q does not wrap the probe failure", err)
	}
}

func TestExecuteRevisionObjectMissing(t *testing.T) {
	store := &stubStore{
		head: func(ctx context.Context, bucket, key string) (bool, error) {
			return false, nil
		},
	}
	service := &stubService{}

	req := Request{
		Application:     "web",
		DeploymentGroup: "prod",
		RevisionSource:  RevisionObjectStore,
		Bucket:          "deploy-bucket",
		BundleKey:       "builds/missing.zip",
		TimeoutMinutes:  1,
	}

	o := newTestOrchestrator(store, service, nil)
	_, err := o.Execute(context.Background(), req)
	if !errors.Is(err, ErrRevisionObjectNotFound) {
		t.Fatalf("err = %v, want ErrRevisionObjectNotFound", err)
	}
	if !strings.Contains(err.Error(), "s3://deploy-bucket/builds/missing.zip") {
		t.Errorf("err %q does not name the object", err)
	}
	if len(service.submissions) != 0 {
		t.Error("submission ran for a missing revision object")
	}
}

func TestExecuteUploadFailureKeepsArchive(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	uploadErr := errors.New("access denied")
	store := &stubStore{
		put: func(ctx context.Context, bucket, key string, body io.ReadSeeker, acl string) error {
			return uploadErr
		},
	}
	service := &stubService{}

	o := newTestOrchestrator(store, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(src))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
	if !errors.Is(err, uploadErr) {
		t.Errorf("err %q does not wrap the upload failure", err)
	}

	if len(store.puts) != 1 {
		t.Fatalf("got %d uploads, want 1", len(store.puts))
	}
	archivePath := filepath.Join(os.TempDir(), filepath.Base(store.puts[0].key))
	if _, statErr := os.Stat(archivePath); statErr != nil {
		t.Errorf("synthesized archive gone after failed upload: %v", statErr)
	}
	os.Remove(archivePath)

	if len(service.submissions) != 0 {
		t.Error("submission ran after a failed upload")
	}
}

func TestExecuteMissingBundlePath(t *testing.T) {
	o := newTestOrchestrator(&stubStore{}, &stubService{}, nil)
	req := workspaceRequest(filepath.Join(t.TempDir(), "no-such-bundle"))

	_, err := o.Execute(context.Background(), req)
	if !errors.Is(err, ErrArchiveCreationFailed) {
		t.Fatalf("err = %v, want ErrArchiveCreationFailed", err)
	}
}

func TestExecuteUnknownRevisionSource(t *testing.T) {
	o := newTestOrchestrator(&stubStore{}, &stubService{}, nil)
	req := workspaceRequest(t.TempDir())
	req.RevisionSource = RevisionSource("git")

	_, err := o.Execute(context.Background(), req)
	if !errors.Is(err, ErrUnknownRevisionSource) {
		t.Fatalf("err = %v, want ErrUnknownRevisionSource", err)
	}
}

func TestExecuteSubmissionRejected(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	submitErr := errors.New("invalid revision")
	service := &stubService{
		createDeployment: func(ctx context.Context, sub Submission) (string, error) {
			return "", submitErr
		},
	}

	o := newTestOrchestrator(&stubStore{}, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(src))
	if !errors.Is(err, ErrDeploymentSubmissionFailed) {
		t.Fatalf("err = %v, want ErrDeploymentSubmissionFailed", err)
	}
	if !errors.Is(err, submitErr) {
		t.Errorf("err %q does not wrap the service failure", err)
	}
	if service.statusPolls != 0 {
		t.Error("wait ran after a rejected submission")
	}
}

func TestExecuteEmptyDeploymentID(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	service := &stubService{
		createDeployment: func(ctx context.Context, sub Submission) (string, error) {
			return "", nil
		},
		status: func(ctx context.Context, deploymentID string) (DeploymentStatus, error) {
			if deploymentID != "" {
				t.Errorf("polled deployment %q, want empty ID passed through", deploymentID)
			}
			return DeploymentStatus{State: StateSucceeded}, nil
		},
	}

	o := newTestOrchestrator(&stubStore{}, service, nil)
	id, err := o.Execute(context.Background(), workspaceRequest(src))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if id != "" {
		t.Errorf("deployment ID = %q, want empty", id)
	}
}

func TestExecuteDeploymentFails(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	service := &stubService{
		status: func(ctx context.Context, deploymentID string) (DeploymentStatus, error) {
			return DeploymentStatus{State: StateFailed, Message: "script exited 1"}, nil
		},
	}

	o := newTestOrchestrator(&stubStore{}, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(src))
	if !errors.Is(err, ErrDeploymentWaitFailed) {
		t.Fatalf("err = %v, want ErrDeploymentWaitFailed", err)
	}
	if !strings.Contains(err.Error(), "Failed") || !strings.Contains(err.Error(), "script exited 1") {
		t.Errorf("err %q does not carry the failure detail", err)
	}
}

func TestExecuteWaitExhausted(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	service := &stubService{
		status: func(ctx context.Context, deploymentID string) (DeploymentStatus, error) {
			return DeploymentStatus{State: StateInProgress}, nil
		},
	}

	o := newTestOrchestrator(&stubStore{}, service, nil)
	_, err := o.Execute(context.Background(), workspaceRequest(src))
	if !errors.Is(err, ErrDeploymentWaitFailed) {
		t.Fatalf("err = %v, want ErrDeploymentWaitFailed", err)
	}
	if !strings.Contains(err.Error(), "web") {
		t.Errorf("err %q does not name the application", err)
	}
	if want := MaxAttempts(1); service.statusPolls != want {
		t.Errorf("polled %d times, want %d", service.statusPolls, want)
	}
}

func TestExecuteOutputSinkFailureIsNotFatal(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "appspec.yml"), "version: 0.0")

	outputs := &recordOutputs{err: errors.New("read-only filesystem")}

	req := workspaceRequest(src)
	req.OutputVariable = "deployment_id"

	o := newTestOrchestrator(&stubStore{}, &stubService{}, outputs)
	id, err := o.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if id != "d-TEST123" {
		t.Errorf("deployment ID = %q, want d-TEST123", id)
	}
}
