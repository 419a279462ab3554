package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrManifest indicates a missing or malformed manifest file
	ErrManifest = errors.New("malformed manifest")

	// ErrMissingAsset indicates the manifest references a directory absent on disk
	ErrMissingAsset = errors.New("missing asset")

	// ErrHashCollision indicates two distinct track names produced the same digest
	ErrHashCollision = errors.New("track name hash collision")

	// ErrIdentity indicates an artist could not be resolved under strict mapping mode
	ErrIdentity = errors.New("unresolved artist identity")

	// ErrRemoteIO indicates a remote storage operation failed
	ErrRemoteIO = errors.New("remote storage failure")

	// ErrPrerequisite indicates a pipeline step's input artifact is missing
	ErrPrerequisite = errors.New("missing prerequisite artifact")
)
