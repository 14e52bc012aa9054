package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/futaoo/INTERVAL/internal/mapstate"
	"github.com/futaoo/INTERVAL/internal/style"
	"github.com/spf13/cobra"
)

var filterFile string

var statsCmd = &cobra.Command{
	Use:   "stats [division-id]",
	Short: "Print statistics for a division, or for every tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		sess := mapstate.NewSession(c, nil)

		var division *int
		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("division id %q: %w", args[0], err)
			}
			division = &id
		}
		if err := sess.LoadDivision(cmd.Context(), division); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), sess.State())
		return nil
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Print statistics for a filter request read from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readFilter(filterFile)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		sess := mapstate.NewSession(c, nil)
		if err := sess.ApplyFilter(cmd.Context(), req); err != nil {
			return err
		}
		st := sess.State()
		printState(cmd.OutOrStdout(), st)
		printer.Fprintf(cmd.OutOrStdout(), "Matching tree ids: %d\n", st.IncludedTreeIDs.GetCardinality())
		return nil
	},
}

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "Prefetch and list the point style of every known combination",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		combos, err := c.StyleCombinations(cmd.Context())
		if err != nil {
			return err
		}

		cache := style.NewCache(nil)
		keys := make([]style.Key, 0, len(combos))
		for _, combo := range combos {
			f := mapstate.Feature{SpreadCategory: combo.SpreadCategory}
			if combo.SpeciesID != nil {
				f.SpeciesID = *combo.SpeciesID
			}
			f.IsPublic = combo.IsPublic != nil && *combo.IsPublic
			keys = append(keys, f.Key())
		}
		cache.Prefetch(keys)

		sort.Slice(keys, func(i, j int) bool {
			if keys[i].SpeciesID != keys[j].SpeciesID {
				return keys[i].SpeciesID < keys[j].SpeciesID
			}
			if keys[i].Spread != keys[j].Spread {
				return keys[i].Spread < keys[j].Spread
			}
			return !keys[i].IsPublic && keys[j].IsPublic
		})
		out := cmd.OutOrStdout()
		for _, k := range keys {
			s := cache.Get(k)
			fmt.Fprintf(out, "species=%-4d %-18s public=%-5t %-8s r=%-2d %s\n",
				k.SpeciesID, k.Spread, k.IsPublic, s.Shape, s.Radius, s.Fill)
		}
		printer.Fprintf(out, "%d styles cached\n", cache.Len())
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVarP(&filterFile, "file", "f", "", "Path to a filter request JSON file")
	_ = filterCmd.MarkFlagRequired("file")
}

func printState(w io.Writer, st mapstate.State) {
	s := st.Statistics
	printer.Fprintf(w, "%s\n", st.ElectoralName)
	printer.Fprintf(w, "  Trees:               %d\n", s.TotalTrees)
	printer.Fprintf(w, "  Species:             %d\n", s.TotalSpecies)
	printer.Fprintf(w, "  Most common species: %s\n", s.MostCommonSpecies)
	printer.Fprintf(w, "  Public / private:    %d%% / %d%%\n", s.PublicPercentage, s.PrivatePercentage)
	printer.Fprintf(w, "  Native / non-native: %d%% / %d%%\n", s.NativePercentage, s.NonNativePercentage)

	for _, b := range s.EcologicalBenefits {
		var total, monetary float64
		if b.TotalValue != nil {
			total = *b.TotalValue
		}
		if b.TotalMonetaryValue != nil {
			monetary = *b.TotalMonetaryValue
		}
		printer.Fprintf(w, "  %-20s %.2f %s (%.2f)\n", b.Name+":", total, b.Unit, monetary)
	}

	printer.Fprintf(w, "  Recent activities:   %d\n", s.TotalIssues)
	for _, a := range s.Activities {
		kind, name := "-", "-"
		if a.Type != nil {
			kind = *a.Type
		}
		if a.TreeName != nil {
			name = *a.TreeName
		}
		fmt.Fprintf(w, "    %s  tree %d (%s)  %s\n", a.Date, a.TreeID, name, kind)
	}
}
