package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/sunrise-backend/internal/cart"
	"github.com/angelmondragon/sunrise-backend/internal/storefront"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/pricing"
)

type quoteLine struct {
	UnitPriceCents     int64   `json:"unitPriceCents" yaml:"unitPriceCents"`
	AdditionPriceCents []int64 `json:"additionPriceCents" yaml:"additionPriceCents"`
	Quantity           int64   `json:"quantity" yaml:"quantity"`
}

type quoteInput struct {
	Lines []quoteLine     `json:"lines"`
	Tip   *cart.TipPolicy `json:"tip,omitempty"`
}

type quoteResult struct {
	pricing.Breakdown `yaml:",inline"`
	Payable           bool `json:"payable" yaml:"payable"`
}

func pricingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Inspect storefront pricing",
	}

	var file string
	var offline bool
	quote := &cobra.Command{
		Use:   "quote",
		Short: "Price a cart described in a JSON file",
		Long: `Price a cart file of the form
  {"lines":[{"unitPriceCents":2499,"additionPriceCents":[150],"quantity":2}],
   "tip":{"type":"percentage","value":20}}
With no tip the configured default percentage applies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pricingCfg := config.PricingConfig{
				TaxRate:              "0.0825",
				DeliveryFeeCents:     500,
				DefaultTipPercentage: 15,
				TipPercentages:       []int64{10, 15, 20, 25},
				Currency:             "usd",
			}
			if !offline {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				pricingCfg = cfg.Pricing
			}
			calc, err := storefront.NewCalculator(pricingCfg)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read cart file: %w", err)
			}
			var in quoteInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("decode cart file: %w", err)
			}
			result, err := quote(calc, in)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
	quote.Flags().StringVarP(&file, "file", "f", "", "cart file")
	quote.Flags().BoolVar(&offline, "offline", false, "use the published default rates instead of the environment")
	_ = quote.MarkFlagRequired("file")

	cmd.AddCommand(quote)
	return cmd
}

// quote prices in as checkout would. An empty cart owes nothing and is not payable.
func quote(calc *pricing.Calculator, in quoteInput) (quoteResult, error) {
	lines := make([]pricing.Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, pricing.Line{
			UnitPriceCents:     l.UnitPriceCents,
			AdditionPriceCents: l.AdditionPriceCents,
			Quantity:           l.Quantity,
		})
	}

	tip := cart.PercentageTip(calc.Config().DefaultTipPercentage)
	if in.Tip != nil {
		tip = *in.Tip
	}
	if err := tip.Validate(calc.Config().MaxFlatTipCents); err != nil {
		return quoteResult{}, err
	}

	subtotal, err := calc.Subtotal(lines)
	if err != nil {
		return quoteResult{}, err
	}
	breakdown, err := calc.Calculate(lines, true, tip.Resolve(subtotal))
	if err != nil {
		return quoteResult{}, err
	}
	return quoteResult{Breakdown: breakdown, Payable: breakdown.TotalCents > 0}, nil
}
