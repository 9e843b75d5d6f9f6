package cmd

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var (
	versionLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	versionValue = lipgloss.NewStyle().Bold(true)
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Display the build version, git commit, build date, and Go runtime details.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, kv := range [][2]string{
				{"VERSION", Version},
				{"COMMIT", GitCommit},
				{"BUILT", BuildDate},
				{"GO", runtime.Version()},
				{"OS/ARCH", runtime.GOOS + "/" + runtime.GOARCH},
			} {
				fmt.Fprintln(out, versionLabel.Render(kv[0])+versionValue.Render(kv[1]))
			}
		},
	}
}
