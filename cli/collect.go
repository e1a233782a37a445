package cli

import (
	"fmt"
	"log"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal"
	"github.com/spf13/cobra"
)

func collect() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect [OPTIONS]",
		Short: "Collect vulnerabilities for a list of projects",
		Long: `Examples:
  # Collect the projects listed in vulncollect.yaml
  $ vulncollect collect

  # Collect two projects into a specific report location
  $ vulncollect collect -p payments,billing -o reports/

  # Use a properties file and stop at the first failed project
  $ vulncollect collect -c vulncollect.properties --halt-on-error`,
		Args: NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("project") {
				settings.ProjectList = projectList
			}
			if flags.Changed("output") {
				settings.ReportLocation = outDir
			}
			if flags.Changed("include-unspecified") {
				settings.IncludeUnspecifiedVersions = includeUnspecified
			}
			if flags.Changed("halt-on-error") {
				settings.HaltOnError = haltOnError
			}

			projects, err := config.ProjectList(settings.ProjectList)
			if err != nil {
				return err
			}

			results, err := internal.DoCollect(cmd.Context(), settings, projects, internal.CollectOptions{Table: !noTable})

			done := 0
			for _, r := range results {
				if r.Err == nil {
					done += 1
				}
			}
			if len(results) > 0 {
				log.Printf("Finished %s of %d project(s), reports are saved in: %s",
					config.Green(done), len(projects), config.Yellow(settings.ReportLocation))
			}

			if err != nil {
				return fmt.Errorf("collection failed:\n%w", err)
			}

			return nil
		},
	}

	collectCmd.Flags().StringVarP(&projectList, "project", "p", "", "comma separated list of projects")
	collectCmd.Flags().StringVarP(&outDir, "output", "o", "", "report location")
	collectCmd.Flags().BoolVar(&includeUnspecified, "include-unspecified", true, "include components without a version")
	collectCmd.Flags().BoolVar(&haltOnError, "halt-on-error", false, "stop at the first failed project")
	collectCmd.Flags().BoolVar(&noTable, "no-table", false, "only print the summary of each project")

	return collectCmd
}
