package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospector/internal/outreach"
)

var outreachBuildLimit int

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Build, approve, and send the outreach queue",
}

var outreachBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Queue enriched leads as pending outreach items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		b := outreach.NewBuilder(st, cfg.Outreach)
		res, err := b.Build(ctx, outreachBuildLimit)
		if err != nil {
			return err
		}
		mres, err := b.BuildManagement(ctx, outreachBuildLimit)
		if err != nil {
			return err
		}

		fmt.Printf("Queued %d of %d candidate leads (%d skipped)\n",
			res.Queued, res.Candidates, res.Skipped)
		fmt.Printf("Queued %d of %d management contacts (%d skipped)\n",
			mres.Queued, mres.Candidates, mres.Skipped)
		if res.Queued+mres.Queued > 0 {
			fmt.Println("Review the queue, then run `prospector outreach approve` to release it.")
		}
		return nil
	},
}

var outreachApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve all pending outreach items for sending",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := outreach.NewBuilder(st, cfg.Outreach).ApproveAll(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Approved %d pending items\n", n)
		return nil
	},
}

var outreachSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send every approved outreach item",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("outreach"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mailer := outreach.NewSMTPMailer(cfg.Outreach)
		report, err := outreach.NewSender(st, mailer, cfg.Outreach).SendBatch(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Sent %d, failed %d\n", report.Sent, report.Failed)
		for _, r := range report.Results {
			if !r.Success {
				fmt.Printf("  failed: %s: %s\n", r.Email, r.Error)
			}
		}
		return nil
	},
}

var outreachStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Queue counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.OutreachStats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Outreach queue: %d pending, %d approved, %d sent, %d failed\n",
			stats.Pending, stats.Approved, stats.Sent, stats.Failed)
		return nil
	},
}

func init() {
	outreachBuildCmd.Flags().IntVar(&outreachBuildLimit, "limit", 100, "maximum leads to queue in this pass")
	outreachCmd.AddCommand(outreachBuildCmd)
	outreachCmd.AddCommand(outreachApproveCmd)
	outreachCmd.AddCommand(outreachSendCmd)
	outreachCmd.AddCommand(outreachStatusCmd)
	rootCmd.AddCommand(outreachCmd)
}
