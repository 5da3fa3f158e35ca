package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/enrich"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Contact enrichment for discovered leads",
}

var enrichRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich pending leads with website, email, and contact details",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		batch, err := enrich.New(st, cfg.Enrich).Run(ctx, enrichLimit)
		if err != nil {
			return err
		}

		fmt.Printf("Enriched %d of %d leads (%d without contact info, %d failed)\n",
			batch.Enriched, batch.Processed, batch.NotFound, batch.Failed)
		for _, r := range batch.Results {
			email := "-"
			if r.Email != nil {
				email = *r.Email
			}
			fmt.Printf("  lead %d: %s via %s\n", r.LeadID, email, r.Method)
		}
		return nil
	},
}

func init() {
	enrichRunCmd.Flags().IntVar(&enrichLimit, "limit", 25, "maximum leads to enrich in this batch")
	enrichCmd.AddCommand(enrichRunCmd)
	rootCmd.AddCommand(enrichCmd)
}
