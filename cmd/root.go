package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	commitreport "github.com/poliacredita/qdigest/cmd/commit-report"
	"github.com/poliacredita/qdigest/cmd/prioritize"
	"github.com/poliacredita/qdigest/cmd/version"
	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

// ConfigEnv names the environment variable holding the configuration file path.
const ConfigEnv = "QDIGEST_CONFIG"

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "qdigest [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "qdigest turns static-analysis findings into a prioritized quality digest.",
		Long: `qdigest runs as a CI pipeline stage. It reads the technical-debt dump of a project,
asks Gemini to rank the ten most critical issues, renders a text and a JSON report and mails them
to the team. The commit-report command produces that dump from SonarCloud for the latest commit.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $%s or %s)", ConfigEnv, config.DefaultConfigFile))
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(prioritize.PrioritizeCmd)
	rootCmd.AddCommand(commitreport.CommitReportCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cmdErr *qerrors.CommandError
		if errors.As(err, &cmdErr) {
			fmt.Fprintf(os.Stderr, "Error executing command: %v\n", cmdErr)
			return cmdErr.ExitCode
		}
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = os.Getenv(ConfigEnv)
	}
	if cfgFile == "" {
		cfgFile = config.DefaultConfigFile
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	version.Init(AppConfig)
	prioritize.Init(AppConfig)
	commitreport.Init(AppConfig)
}
