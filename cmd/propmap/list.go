package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/propmap/internal/config"
	"github.com/ensigniasec/propmap/internal/filter"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/listing"
)

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the listings matching the given filters",
	Long: "Print the listings matching the given filters as a table or JSON. Values within one filter are " +
		"alternatives; different filters must all match. Omitted filters match everything.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, false)
		ctx := cmd.Context()

		ls, _, err := loadListings(ctx, cfg)
		if err != nil {
			logrus.Fatal(err)
		}
		store := listing.NewStore()
		store.AppendListings(ls)

		state, err := filterFromFlags(cmd)
		if err != nil {
			logrus.Fatal(err)
		}
		var region *geo.Region
		if raw, _ := cmd.Flags().GetString("region"); raw != "" {
			r, err := geo.ParseRegion(raw)
			if err != nil {
				logrus.Fatal(err)
			}
			region = &r
		}

		all := store.All()
		visible := filter.Visible(all, state, region)
		logrus.Debugf("filters %s matched %d of %d listings", state, len(visible), len(all))

		if jsonOutput {
			if visible == nil {
				visible = []listing.Listing{}
			}
			printJSON(visible)
			return
		}
		fmt.Fprintln(os.Stdout, renderTable(listingHeaders(), listingRows(visible)))
		fmt.Fprintf(os.Stdout, "%d of %d listings\n", len(visible), len(all))
	},
}

// filterFromFlags builds a filter state from the dimension flags. Values outside the
// vocabulary are kept, so they match nothing, and reported.
func filterFromFlags(cmd *cobra.Command) (filter.State, error) {
	var s filter.State
	for _, d := range filter.Dimensions {
		values, err := cmd.Flags().GetStringSlice(d.String())
		if err != nil {
			return filter.State{}, err
		}
		known := filter.Vocabulary(d)
		for _, v := range values {
			if !slices.ContainsFunc(known, func(o filter.Option) bool { return o.Value == v }) {
				logrus.Warnf("unknown %s value %q matches no listing", d, v)
			}
		}
		s = s.With(d, values...)
	}
	return s, nil
}

func listingHeaders() []string {
	return []string{"ID", "Name", "Type", "BHK", "Carpet", "Price", "Price Cr", "Lat", "Lng"}
}

func listingRows(ls []listing.Listing) [][]string {
	rows := make([][]string, 0, len(ls))
	for _, l := range ls {
		name := l.Name
		if name == "" {
			name = listing.Placeholder
		}
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			name,
			l.TypeLabel(),
			l.BHK.String(),
			l.Carpet.String(),
			l.Price.String(),
			l.PriceCr.String(),
			listing.CoordLabel(l.Lat),
			listing.CoordLabel(l.Lng),
		})
	}
	return rows
}

// loadListings reads the configured source: Postgres, a file or directory, or the
// bundled sample. The file paths read are returned for the watcher.
func loadListings(ctx context.Context, cfg config.Config) ([]listing.Listing, []string, error) {
	switch {
	case cfg.ListingsDSN != "":
		src, err := listing.OpenPostgres(ctx, cfg.ListingsDSN)
		if err != nil {
			return nil, nil, err
		}
		defer src.Close()
		ls, err := src.Load(ctx)
		return ls, nil, err

	case cfg.Listings != "":
		paths, err := listing.Discover(ctx, cfg.Listings, cfg.ListingsPattern)
		if err != nil {
			return nil, nil, err
		}
		if len(paths) == 0 {
			logrus.Warnf("no listing files under %s matching %s", cfg.Listings, cfg.ListingsPattern)
		}
		ls, err := listing.LoadAll(ctx, paths, false)
		return ls, paths, err

	default:
		ls, err := listing.Sample()
		return ls, nil, err
	}
}
