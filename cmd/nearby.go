package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bloodbuddy/donor-cli/internal/nearby"
)

var (
	nearbyLat        float64
	nearbyLon        float64
	nearbyBloodGroup string
	nearbyLimit      int
	nearbyGeoJSON    bool
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List the donors closest to a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("query"); err != nil {
			return err
		}
		st, err := initStore(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "nearby: open store")
		}
		defer st.Close() //nolint:errcheck

		res, err := nearby.NewEngine(st, nil).Nearby(ctx, nearby.Query{
			Latitude:   nearbyLat,
			Longitude:  nearbyLon,
			BloodGroup: nearbyBloodGroup,
			Limit:      nearby.LimitPtr(nearbyLimit),
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if nearbyGeoJSON {
			return enc.Encode(res.GeoJSON())
		}
		return enc.Encode(res)
	},
}

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "query latitude (required)")
	nearbyCmd.Flags().Float64Var(&nearbyLon, "lon", 0, "query longitude (required)")
	nearbyCmd.Flags().StringVar(&nearbyBloodGroup, "blood-group", "", "only donors of this blood group, e.g. O-")
	nearbyCmd.Flags().IntVar(&nearbyLimit, "limit", nearby.DefaultLimit, "maximum donors to return")
	nearbyCmd.Flags().BoolVar(&nearbyGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(nearbyCmd)
}
