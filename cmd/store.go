package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/store"
)

func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Database management",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		zap.L().Info("schema ready", zap.String("driver", cfg.Store.Driver))
		fmt.Printf("Schema ready (%s)\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeInitCmd)
	rootCmd.AddCommand(storeCmd)
}
