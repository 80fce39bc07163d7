package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardid/cardid-server/internal/cardnum"
	"github.com/cardid/cardid-server/internal/match"
	"github.com/cardid/cardid-server/internal/service"
)

func newClassifyCommand() *cobra.Command {
	var radius int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "classify <number>...",
		Short:       "Show how printed numbers are read and searched",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRadius(radius); err != nil {
				return err
			}
			results := make([]service.NumberClassification, 0, len(args))
			for _, raw := range args {
				results = append(results, service.Classify(raw, radius))
			}
			if jsonOutput {
				return writeJSON(cmd, results)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				total := ""
				if r.Total > 0 {
					total = strconv.Itoa(r.Total)
				}
				rows = append(rows, []string{
					r.Raw,
					r.Format,
					strings.Join(r.Variants, ", "),
					r.Partition,
					total,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Raw", "Format", "Variants", "Partition", "Total"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&radius, "radius", match.DefaultThresholds().FuzzyRadius, "Neighbour radius")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print classifications as JSON")
	return cmd
}

func newExpandCommand() *cobra.Command {
	var radius int

	cmd := &cobra.Command{
		Use:         "expand <number>",
		Short:       "List the numbers searched by fuzzy number recovery",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRadius(radius); err != nil {
				return err
			}
			distance := map[string]int{}
			for _, n := range cardnum.Nearest(args[0], radius) {
				distance[n.Number] = n.Distance
			}

			numbers := cardnum.Expand(args[0], radius)
			rows := make([][]string, 0, len(numbers))
			for _, n := range numbers {
				rows = append(rows, []string{n, strconv.Itoa(distance[n])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Number", "Distance"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&radius, "radius", "r", match.DefaultThresholds().FuzzyRadius, "Neighbour radius")
	return cmd
}

func checkRadius(radius int) error {
	if radius < 0 {
		return errors.New("radius must not be negative")
	}
	if radius > match.MaxFuzzyRadius {
		return fmt.Errorf("radius must not exceed %d", match.MaxFuzzyRadius)
	}
	return nil
}
