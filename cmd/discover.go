package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/classify"
	"github.com/sells-group/prospector/internal/discovery"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/scrape"
	"github.com/sells-group/prospector/internal/store"
)

var discoverTarget string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Lead discovery sweeps over geo targets",
}

var discoverRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep the next due geo target (or --target by name)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("discovery"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		target, err := pickTarget(ctx, st)
		if err != nil {
			return err
		}

		scraper := scrape.NewMapsScraper(
			cfg.Discovery.MapsBaseURL,
			cfg.Discovery.UserAgent,
			time.Duration(cfg.Discovery.QueryTimeoutSecs)*time.Second)
		driver := discovery.NewDriver(st, scraper, classify.New(cfg.Classify), cfg.Discovery)

		res, err := driver.Sweep(ctx, target)
		if err != nil {
			return err
		}

		fmt.Printf("Sweep of %s: %d queries, %d results, %d new, %d updated, %d skipped, %d blocked, %d errors\n",
			res.GeoTargetName, res.QueriesRun, res.ResultsFound, res.NewLeads,
			res.UpdatedLeads, res.Skipped, res.BlockedQueries, len(res.Errors))
		for _, qe := range res.Errors {
			fmt.Printf("  error: %s: %s\n", qe.Query, qe.Error)
		}
		return nil
	},
}

var discoverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Pipeline counts by stage and state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.PipelineStats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Leads: %d total, %d management companies\n", stats.TotalLeads, stats.ManagementCompanies)
		fmt.Printf("Awaiting enrichment: %d, awaiting scrape: %d, with email: %d\n",
			stats.AwaitingEnrichment, stats.AwaitingScrape, stats.WithEmail)
		for _, sc := range stats.ByState {
			if sc.AvgRating != nil {
				fmt.Printf("  %-2s %4d leads, avg rating %.1f\n", sc.State, sc.Count, *sc.AvgRating)
			} else {
				fmt.Printf("  %-2s %4d leads\n", sc.State, sc.Count)
			}
		}
		return nil
	},
}

func pickTarget(ctx context.Context, st store.Store) (*model.GeoTarget, error) {
	if discoverTarget != "" {
		targets, err := st.ListGeoTargets(ctx)
		if err != nil {
			return nil, err
		}
		for i := range targets {
			if targets[i].Name == discoverTarget {
				return &targets[i], nil
			}
		}
		return nil, eris.Errorf("no geo target named %q", discoverTarget)
	}

	t, err := st.NextGeoTarget(ctx)
	if eris.Is(err, store.ErrNotFound) {
		return nil, eris.New("no active geo targets; run `prospector geo init` first")
	}
	return t, err
}

func init() {
	discoverRunCmd.Flags().StringVar(&discoverTarget, "target", "", "sweep a specific geo target by name")
	discoverCmd.AddCommand(discoverRunCmd)
	discoverCmd.AddCommand(discoverStatusCmd)
	rootCmd.AddCommand(discoverCmd)
}
