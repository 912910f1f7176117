package config

import "github.com/imranansari/codedeploy-task/deploy"

// File-exists behaviors accepted by the deployment service, as constants
// to prevent typos.
const (
	// FileExistsDisallow fails the deployment when a file already exists
	// on an instance.
	FileExistsDisallow = "DISALLOW"

	// FileExistsOverwrite replaces files that already exist.
	FileExistsOverwrite = "OVERWRITE"

	// FileExistsRetain keeps existing files untouched.
	FileExistsRetain = "RETAIN"
)

// ValidFileExistsBehaviors returns all accepted file-exists behaviors.
func ValidFileExistsBehaviors() []string {
	return []string{
		FileExistsDisallow,
		FileExistsOverwrite,
		FileExistsRetain,
	}
}

// IsValidFileExistsBehavior checks whether the given behavior is accepted.
func IsValidFileExistsBehavior(behavior string) bool {
	for _, valid := range ValidFileExistsBehaviors() {
		if behavior == valid {
			return true
		}
	}
	return false
}

// ValidRevisionSources returns all accepted revision sources.
func ValidRevisionSources() []string {
	return []string{
		string(deploy.RevisionWorkspace),
		string(deploy.RevisionObjectStore),
	}
}

// IsValidRevisionSource checks whether the given revision source is
// accepted.
func IsValidRevisionSource(source string) bool {
	for _, valid := range ValidRevisionSources() {
		if source == valid {
			return true
		}
	}
	return false
}

// ValidArchiveACLs returns all accepted canned ACLs for uploaded bundles.
// "none" leaves the bucket default in place.
func ValidArchiveACLs() []string {
	return []string{
		deploy.ACLNone,
		"private",
		"public-read",
		"public-read-write",
		"authenticated-read",
		"aws-exec-read",
		"bucket-owner-read",
		"bucket-owner-full-control",
	}
}

// IsValidArchiveACL checks whether the given ACL is accepted.
func IsValidArchiveACL(acl string) bool {
	for _, valid := range ValidArchiveACLs() {
		if acl == valid {
			return true
		}
	}
	return false
}
