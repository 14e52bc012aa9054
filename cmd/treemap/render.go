package main

import (
	"fmt"
	"os"

	"github.com/futaoo/INTERVAL/internal/mapstate"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
)

var (
	renderIn     string
	renderOut    string
	renderFilter string
	renderSelect int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Attach point styles to a GeoJSON layer of trees",
	Long: "Reads a FeatureCollection of tree points with tree_id, species_id, spread_category " +
		"and is_public properties and writes it back with a style property. Trees hidden by " +
		"--filter are dropped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(renderIn)
		if err != nil {
			return fmt.Errorf("read layer: %w", err)
		}
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return fmt.Errorf("parse layer: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		sess := mapstate.NewSession(c, nil)
		ctx := cmd.Context()

		if _, err := sess.InitStyles(ctx); err != nil {
			return fmt.Errorf("init styles: %w", err)
		}
		if renderFilter != "" {
			req, err := readFilter(renderFilter)
			if err != nil {
				return err
			}
			if err := sess.ApplyFilter(ctx, req); err != nil {
				return err
			}
		}
		if renderSelect != 0 {
			if _, err := sess.SelectTree(ctx, renderSelect); err != nil {
				return fmt.Errorf("select tree %d: %w", renderSelect, err)
			}
		}

		styled, hidden := styleLayer(sess, fc)
		b, err := styled.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode layer: %w", err)
		}
		if err := os.WriteFile(renderOut, b, 0o644); err != nil {
			return fmt.Errorf("write layer: %w", err)
		}
		printer.Fprintf(cmd.OutOrStdout(), "Styled %d trees, hid %d\n", len(styled.Features), hidden)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderIn, "in", "", "Input GeoJSON FeatureCollection")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "Output GeoJSON path")
	renderCmd.Flags().StringVar(&renderFilter, "filter", "", "Optional filter request JSON file")
	renderCmd.Flags().IntVar(&renderSelect, "select", 0, "Optional tree id to highlight")
	_ = renderCmd.MarkFlagRequired("in")
	_ = renderCmd.MarkFlagRequired("out")
}

// styleLayer returns a copy of fc whose features carry a "style" property,
// leaving out features the session hides.
func styleLayer(sess *mapstate.Session, fc *geojson.FeatureCollection) (*geojson.FeatureCollection, int) {
	out := geojson.NewFeatureCollection()
	hidden := 0
	for _, f := range fc.Features {
		st, ok := sess.FeatureStyle(featureOf(f))
		if !ok {
			hidden++
			continue
		}
		styled := geojson.NewFeature(f.Geometry)
		styled.ID = f.ID
		styled.Properties = f.Properties.Clone()
		styled.Properties["style"] = st
		out.Append(styled)
	}
	return out, hidden
}

func featureOf(f *geojson.Feature) mapstate.Feature {
	p := f.Properties
	return mapstate.Feature{
		TreeID:         p.MustInt("tree_id", 0),
		SpeciesID:      p.MustInt("species_id", 0),
		SpreadCategory: p.MustString("spread_category", "Unknown"),
		IsPublic:       p.MustBool("is_public", false),
	}
}
