package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardid/cardid-server/internal/domain"
	"github.com/cardid/cardid-server/internal/service"
)

var errNoMatch = errors.New("no match")

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var req service.IdentifyRequest
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a card description against the catalog",
		Example: `  cardid resolve --name Charizard --number 4/102
  cardid resolve --name Pikachu --number SVP085 --breakdown "S,V,P,0,8,5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.Close() //nolint:errcheck // read-only use

			res, err := ctx.newResolver()
			if err != nil {
				return err
			}
			svc := service.NewIdentifyService(res, ctx.logger.Component("identify"))

			ident, err := svc.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, ident); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderIdentification(ident))
			}

			if !ident.Success {
				return fmt.Errorf("%w: %s", errNoMatch, ident.Error)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Query.Name, "name", "", "Card name as printed")
	flags.StringVar(&req.Query.CharacterName, "character", "", "Featured character")
	flags.StringVar(&req.Query.SetNameHint, "set", "", "Set name")
	flags.StringVar(&req.Query.PrintedNumberRaw, "number", "", "Printed number, e.g. 4/102 or SWSH039")
	flags.StringVar(&req.Query.SetTotalHint, "total", "", "Printed set total")
	flags.StringVar(&req.Query.YearHint, "year", "", "Copyright or release year")
	flags.StringVar(&req.Query.RarityHint, "rarity", "", "Rarity")
	flags.StringVar(&req.Query.SetCodeHint, "set-code", "", "Three letter set code")
	flags.StringVar(&req.Breakdown, "breakdown", "", "Per-character OCR breakdown of the printed number")
	flags.BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")

	return cmd
}

func renderIdentification(ident *service.Identification) string {
	rows := [][]string{
		{"Resolution", ident.ID},
		{"Matched", yesNo(ident.Success)},
		{"Method", string(ident.Method)},
		{"Confidence", string(ident.Confidence)},
	}
	if ident.Format != "" {
		rows = append(rows, []string{"Number format", ident.Format})
	}
	if len(ident.Variants) > 0 {
		rows = append(rows, []string{"Number variants", strings.Join(ident.Variants, ", ")})
	}
	if card := ident.Card; card != nil {
		rows = append(rows,
			[]string{"Card", card.ID},
			[]string{"Name", card.Name},
			[]string{"Number", cardNumber(card)},
			[]string{"Set", card.Set.Name},
		)
		if card.Rarity != "" {
			rows = append(rows, []string{"Rarity", card.Rarity})
		}
	}
	if ident.Match != nil {
		rows = append(rows, []string{"Score", strconv.FormatFloat(ident.Match.Score, 'f', 2, 64)})
		for _, w := range ident.Match.Warnings {
			rows = append(rows, []string{"Warning", w})
		}
	}
	if ident.Error != "" {
		rows = append(rows, []string{"Reason", ident.Error})
	}
	out := renderTable([]string{"Field", "Value"}, rows, nil)

	if len(ident.Corrections) > 0 {
		crows := make([][]string, 0, len(ident.Corrections))
		for _, c := range ident.Corrections {
			crows = append(crows, []string{c.Field, c.Original, c.Corrected, c.Source})
		}
		out += "\n" + renderTable([]string{"Field", "Original", "Corrected", "Source"}, crows, nil)
	}
	return out
}

func cardNumber(card *domain.ReferenceCard) string {
	if card.Set.PrintedTotal > 0 {
		return fmt.Sprintf("%s/%d", card.Number, card.Set.PrintedTotal)
	}
	return card.Number
}
