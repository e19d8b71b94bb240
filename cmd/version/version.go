package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/poliacredita/qdigest/internal/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = runtime.Version()
	BuildTime     = "unknown"
)

// Versions holds the build information printed by the version command.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
	Model         string `json:"model"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application",
		Run: func(cmd *cobra.Command, args []string) {
			printVersionInfo(cmd, collect(AppConfig))
		},
	}
}

func collect(cfg *config.Config) Versions {
	model := config.DefaultModel
	if cfg != nil && cfg.Gemini.Model != "" {
		model = cfg.Gemini.Model
	}
	return Versions{
		Version:       CoreVersion,
		GolangVersion: GolangVersion,
		BuildTime:     BuildTime,
		Model:         model,
	}
}

// printVersionInfo prints the version information of the binary.
func printVersionInfo(cmd *cobra.Command, v Versions) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Core Version: v%s\n", v.Version)
	fmt.Fprintf(out, "Gemini Model: %s\n", v.Model)
	fmt.Fprintf(out, "Go Version: %s\n", v.GolangVersion)
	fmt.Fprintf(out, "Build Time: %s\n", v.BuildTime)
}
