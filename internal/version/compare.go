package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaCompatibility checks whether the engine can run a strategy
// configuration written against the given schema version.
// Returns nil if compatible, error with details if not.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckSchemaCompatibility(engineVersion, schemaVersion string) error {
	// Strip 'v' prefix if present for consistency
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	schemaVersion = strings.TrimPrefix(schemaVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || schemaVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	schemaSemver, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version '%s': %w", schemaVersion, err)
	}

	if engineSemver.Major() != schemaSemver.Major() {
		return fmt.Errorf("major version mismatch: engine is %d.x.x but configuration requires %d.x.x",
			engineSemver.Major(), schemaSemver.Major())
	}

	if engineSemver.Minor() != schemaSemver.Minor() {
		return fmt.Errorf("minor version mismatch: engine is %d.%d.x but configuration requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			schemaSemver.Major(), schemaSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
