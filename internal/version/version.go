package version

// Version is the current version of the pulse-trading engine.
// Release builds override it using ldflags:
// -ldflags "-X github.com/quantive-lab/pulse-trading/internal/version.Version=1.2.3"
// The value "main" indicates a development build and skips schema checks.
var Version = "v1.0.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
