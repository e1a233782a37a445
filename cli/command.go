package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kvesta/vulncollect/config"
	"github.com/spf13/cobra"
)

const versions = "vulncollect version 0.3.0"

var (
	cfgFile            string
	projectList        string
	outDir             string
	includeUnspecified bool
	haltOnError        bool
	noTable            bool
	verbose            bool
	resetKB            bool
	releaseID          string
	componentID        string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vulncollect [OPTIONS]",
		Short: "BOM vulnerability collector",
		Long: `Vulncollect enriches the bill of materials of a project with the vulnerabilities
               of a knowledge base and writes a browsable report per project`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				config.Verbose = true
			}
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versions)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "configuration file (yaml, json, toml or properties)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")

	rootCmd.AddCommand(collect())
	rootCmd.AddCommand(kb())
	rootCmd.AddCommand(configure())
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// Execute runs the command tree. An interrupt cancels the context handed
// to the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(config.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, newRootCmd())
}

func execute(ctx context.Context, cmd *cobra.Command) error {
	return cmd.ExecuteContext(ctx)
}

// loadSettings reads the configuration and applies the global switches.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if settings.Verbose {
		config.Verbose = true
	}

	return settings, nil
}
