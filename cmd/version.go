package cmd

import (
	"fmt"
	"runtime"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/connectsphere/cli/cmd/utils"
)

// Version will be set by build flags during release builds
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of the ConnectSphere CLI",
	Run: func(cmd *cobra.Command, args []string) {
		utils.OutputInfo("ConnectSphere CLI %s (%s, %s/%s)\n", formatVersionForDisplay(Version), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// normalizeForSemver strips a leading v and parses the rest; the version
// is nil for non-release builds.
func normalizeForSemver(raw string) (string, *semver.Version) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed, nil
	}
	normalized := strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")
	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return normalized, nil
	}
	return normalized, parsed
}

// formatVersionForDisplay prints release builds as vX.Y.Z and anything
// else verbatim, marked as a development build.
func formatVersionForDisplay(raw string) string {
	normalized, v := normalizeForSemver(raw)
	switch {
	case normalized == "":
		return "(unknown version)"
	case v == nil:
		return normalized + " (development build)"
	case v.Prerelease() != "":
		return "v" + v.String() + " (pre-release)"
	}
	return fmt.Sprintf("v%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
