package smf

// Version is the current version of the go-smf library
const Version = "0.3.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Manager is the service manager driven by this library
	Manager string
	// ManifestDir is the default manifest directory
	ManifestDir string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:     Version,
		Manager:     "smf",
		ManifestDir: DefaultManifestDir,
	}
}
