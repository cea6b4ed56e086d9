package ir

// Version constants for content digests and the tool.
const (
	// DigestVersion suffixes the digest domains. Changing it makes every
	// stored signature stale, so the next pass re-signs everything.
	DigestVersion = "v1"

	// Version is the recipesync release.
	Version = "0.1.0"
)
