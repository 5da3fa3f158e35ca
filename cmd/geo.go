package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
)

var geoFile string

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Geo target management",
}

// defaultGeoTargets covers the Florida metros the pipeline started with.
// `geo init --file targets.json` replaces them.
var defaultGeoTargets = []model.GeoTarget{
	{
		Name:     "tampa-bay",
		Priority: 2,
		Active:   true,
		Cities: []model.CityState{
			{City: "Tampa", State: "FL"},
			{City: "St. Petersburg", State: "FL"},
			{City: "Clearwater", State: "FL"},
			{City: "Brandon", State: "FL"},
			{City: "Wesley Chapel", State: "FL"},
		},
	},
	{
		Name:     "orlando",
		Priority: 1,
		Active:   true,
		Cities: []model.CityState{
			{City: "Orlando", State: "FL"},
			{City: "Kissimmee", State: "FL"},
			{City: "Winter Garden", State: "FL"},
			{City: "Lake Nona", State: "FL"},
		},
	},
	{
		Name:     "south-florida",
		Priority: 1,
		Active:   true,
		Cities: []model.CityState{
			{City: "Miami", State: "FL"},
			{City: "Fort Lauderdale", State: "FL"},
			{City: "Boca Raton", State: "FL"},
			{City: "West Palm Beach", State: "FL"},
		},
	},
	{
		Name:   "southwest-florida",
		Active: true,
		Cities: []model.CityState{
			{City: "Naples", State: "FL"},
			{City: "Fort Myers", State: "FL"},
			{City: "Sarasota", State: "FL"},
			{City: "Cape Coral", State: "FL"},
		},
	},
}

var geoInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed geo targets",
	Long:  "Seed the geo target table from --file (JSON array) or the built-in defaults. Existing targets with the same name are left untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		targets := defaultGeoTargets
		if geoFile != "" {
			data, err := os.ReadFile(geoFile)
			if err != nil {
				return eris.Wrapf(err, "read %s", geoFile)
			}
			if err := json.Unmarshal(data, &targets); err != nil {
				return eris.Wrapf(err, "parse %s", geoFile)
			}
		}

		created := 0
		for i := range targets {
			if _, err := st.CreateGeoTarget(ctx, &targets[i]); err != nil {
				// Duplicate names are fine on re-init.
				zap.L().Debug("geo target skipped",
					zap.String("name", targets[i].Name), zap.Error(err))
				continue
			}
			created++
		}

		fmt.Printf("Seeded %d of %d geo targets\n", created, len(targets))
		return nil
	},
}

var geoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List geo targets and sweep recency",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		targets, err := st.ListGeoTargets(ctx)
		if err != nil {
			return err
		}

		for _, gt := range targets {
			swept := "never"
			if gt.LastSweptAt != nil {
				swept = gt.LastSweptAt.Format("2006-01-02 15:04")
			}
			status := "active"
			if !gt.Active {
				status = "paused"
			}
			fmt.Printf("%-20s p%-2d %-7s cities=%-2d last swept: %s\n",
				gt.Name, gt.Priority, status, len(gt.Cities), swept)
		}
		return nil
	},
}

func init() {
	geoInitCmd.Flags().StringVar(&geoFile, "file", "", "JSON file of geo targets")
	geoCmd.AddCommand(geoInitCmd)
	geoCmd.AddCommand(geoListCmd)
	rootCmd.AddCommand(geoCmd)
}
