package deploy

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// resolveRevision produces the object-store location the deployment is
// created from. Exactly one path is taken, chosen by the revision source:
// package-and-upload for workspace bundles, adopt-the-key for revisions
// already in the store.
func (o *Orchestrator) resolveRevision(ctx context.Context, req Request) (ResolvedRevision, error) {
	switch req.RevisionSource {
	case RevisionWorkspace:
		return o.uploadWorkspaceBundle(ctx, req)
	case RevisionObjectStore:
		return ResolvedRevision{
			Bucket:     req.Bucket,
			Key:        req.BundleKey,
			BundleType: bundleTypeOf(req.BundleKey),
		}, nil
	default:
		return ResolvedRevision{}, fmt.Errorf("%w: %q", ErrUnknownRevisionSource, req.RevisionSource)
	}
}

// uploadWorkspaceBundle packages the bundle path if it is a directory,
// uploads the result, and removes the synthesized archive afterwards.
// A bundle that is already a file is uploaded as-is and never deleted.
// On upload failure a synthesized archive is also left on disk so the
// operator can inspect what would have shipped.
func (o *Orchestrator) uploadWorkspaceBundle(ctx context.Context, req Request) (ResolvedRevision, error) {
	info, err := os.Stat(req.BundlePath)
	if err != nil {
		return ResolvedRevision{}, fmt.Errorf("%w: stat bundle path %q: %w", ErrArchiveCreationFailed, req.BundlePath, err)
	}

	archivePath := req.BundlePath
	autoCreated := false
	if info.IsDir() {
		archivePath = filepath.Join(os.TempDir(), archiveName(req.Application, time.Now()))
		o.logger.Info().
			Str("bundle_path", req.BundlePath).
			Str("archive_path", archivePath).
			Msg("Creating revision archive")
		if err := CreateArchive(req.BundlePath, archivePath); err != nil {
			return ResolvedRevision{}, fmt.Errorf("%w: %w", ErrArchiveCreationFailed, err)
		}
		autoCreated = true
	}

	key := objectKey(req.BundlePrefix, archivePath)
	acl := req.ArchiveACL
	if acl == ACLNone {
		acl = ""
	}

	o.logger.Info().
		Str("bucket", req.Bucket).
		Str("key", key).
		Str("acl", acl).
		Msg("Uploading revision bundle")

	f, err := os.Open(archivePath)
	if err != nil {
		return ResolvedRevision{}, fmt.Errorf("%w: open %q: %w", ErrUploadFailed, archivePath, err)
	}
	err = o.store.Put(ctx, req.Bucket, key, f, acl)
	f.Close()
	if err != nil {
		return ResolvedRevision{}, fmt.Errorf("%w: s3://%s/%s: %w", ErrUploadFailed, req.Bucket, key, err)
	}

	if autoCreated {
		if err := os.Remove(archivePath); err != nil {
			o.logger.Warn().Err(err).
				Str("archive_path", archivePath).
				Msg("Could not remove temporary archive")
		}
	}

	return ResolvedRevision{Bucket: req.Bucket, Key: key, BundleType: bundleTypeOf(key)}, nil
}

// archiveName is the synthesized bundle naming convention:
// <application>.v<unixMillis>.zip.
func archiveName(application string, now time.Time) string {
	return fmt.Sprintf("%s.v%d.zip", application, now.UnixMilli())
}

// objectKey computes the destination key for an uploaded bundle: the
// archive basename, under the configured prefix when one is set. Keys are
// always slash-separated regardless of host OS.
func objectKey(prefix, archivePath string) string {
	base := filepath.Base(archivePath)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// bundleTypeOf infers the bundle-type hint from the resolved key: the
// lowercased extension without the dot, defaulting to zip when the key
// has none. The deployment service stays the final authority on whether
// it accepts the type.
func bundleTypeOf(key string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	if ext == "" {
		return "zip"
	}
	return ext
}
