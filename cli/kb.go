package cli

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal"
	"github.com/kvesta/vulncollect/internal/report"
	"github.com/kvesta/vulncollect/pkg/component"
	"github.com/kvesta/vulncollect/pkg/vulnlib"
	"github.com/spf13/cobra"
)

func kb() *cobra.Command {
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the vulnerability knowledge base",
		Long: `Examples:
  # Load a feed into the local knowledge base
  $ vulncollect kb import feed.json

  # Replace the local knowledge base with a remote feed
  $ vulncollect kb import --reset https://example.org/feed.json

  # Show what a release is affected by
  $ vulncollect kb search --release rel-openssl-102`,
		Args: NoArgs,
	}

	importCmd := &cobra.Command{
		Use:   "import <feed>",
		Short: "Import a JSON feed into the local knowledge base",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			if settings.KB.Source != config.SourceSQLite {
				return fmt.Errorf("kb import requires the %s knowledge base, configured: %s",
					config.SourceSQLite, settings.KB.Source)
			}

			ctx := cmd.Context()
			data, err := vulnlib.Fetch(ctx, &http.Client{Timeout: settings.KB.RequestTimeout()}, args[0])
			if err != nil {
				return fmt.Errorf("failed to read feed %s: %w", args[0], err)
			}

			db, err := vulnlib.OpenDB(settings.KB.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if resetKB {
				log.Printf("Resetting knowledge base: %s", config.Yellow(settings.KB.Path))
				if err = db.Reset(); err != nil {
					return err
				}
			}

			stats, err := db.Import(ctx, data)
			if err != nil {
				return err
			}

			log.Printf("%s releases: %d, vulnerabilities: %d, ranges: %d",
				config.Green("Updating vulnerability database success"),
				stats.Releases, stats.Vulnerabilities, stats.Ranges)

			return nil
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search the configured knowledge base",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key component.LookupKey
			switch {
			case releaseID != "" && componentID != "":
				return errors.New("use either --release or --component")
			case releaseID != "":
				key = component.ByRelease(releaseID)
			case componentID != "":
				key = component.ByComponent(componentID)
			default:
				return errors.New("one of --release or --component is required")
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			lookup, closeLookup, err := internal.NewLookupClient(settings.KB)
			if err != nil {
				return err
			}
			defer closeLookup()

			vulns, err := vulnlib.Search(cmd.Context(), lookup, key, vulnlib.UnboundedPage())
			if err != nil {
				return err
			}

			return report.ResolveSearchData(vulns)
		},
	}

	importCmd.Flags().BoolVar(&resetKB, "reset", false, "drop the existing data before importing")

	searchCmd.Flags().StringVar(&releaseID, "release", "", "release id")
	searchCmd.Flags().StringVar(&componentID, "component", "", "component id")

	kbCmd.AddCommand(importCmd)
	kbCmd.AddCommand(searchCmd)

	return kbCmd
}
