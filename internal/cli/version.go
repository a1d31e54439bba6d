package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/roach88/cypher2sql/internal/sqlast"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=v1.2.3".
var Version = "dev"

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version   string   `json:"version"`
	GoVersion string   `json:"go_version"`
	Module    string   `json:"module,omitempty"`
	Dialects  []string `json:"dialects"`
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("cypher2sql %s (%s)", v.Version, v.GoVersion)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version:   Version,
				GoVersion: runtime.Version(),
				Dialects:  sqlast.DialectNames(),
			}
			if bi, ok := debug.ReadBuildInfo(); ok {
				info.Module = bi.Main.Path
				if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
					info.Version = bi.Main.Version
				}
			}
			return rootOpts.formatter(cmd).Success(info)
		},
	}
}
