package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/metadata/pokemontcg"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "import <file.json>...",
		Short: "Load catalog dumps into the local catalog",
		Long: `Import reads card dumps in the remote API's card shape, either a paged
response {"data": [...]} or a bare array, and upserts the cards and their
sets into the local catalog.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() { err = errors.Join(err, ctx.Close()) }()

			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			var cards []domain.ReferenceCard
			for _, path := range args {
				batch, err := decodeCardFile(path)
				if err != nil {
					return err
				}
				cards = append(cards, batch...)
			}

			written, err := store.UpsertCards(cmd.Context(), cards)
			if err != nil {
				return fmt.Errorf("import cards: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards from %d file(s)\n", written, len(args))

			if !reindex {
				return nil
			}
			svc, err := ctx.newCatalogService()
			if err != nil {
				return err
			}
			names, err := svc.Reload(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d names\n", names)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", true, "Rebuild the name index after importing")
	return cmd
}

func decodeCardFile(path string) ([]domain.ReferenceCard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cards, err := pokemontcg.DecodeCards(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cards, nil
}

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the name index from the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() { err = errors.Join(err, ctx.Close()) }()

			svc, err := ctx.newCatalogService()
			if err != nil {
				return err
			}
			names, err := svc.Reload(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d names\n", names)
			return nil
		},
	}
}

func newSetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sets [set-id]",
		Short: "List catalog sets, or show one set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.Close() //nolint:errcheck // read-only use

			svc, err := ctx.newCatalogService()
			if err != nil {
				return err
			}

			var sets []domain.CardSet
			if len(args) == 1 {
				set, err := svc.GetSet(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				sets = []domain.CardSet{*set}
			} else if sets, err = svc.ListSets(cmd.Context()); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, sets)
			}
			rows := make([][]string, 0, len(sets))
			for _, s := range sets {
				rows = append(rows, []string{s.ID, s.Name, s.Series, strconv.Itoa(s.PrintedTotal), s.ReleaseDate})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Series", "Total", "Released"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sets as JSON")
	return cmd
}
