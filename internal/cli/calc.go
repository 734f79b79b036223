package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"immobilier-assistant/internal/calculator"
)

func mortgageCommand() *cobra.Command {
	form := calculator.NewMortgageForm()
	cmd := &cobra.Command{
		Use:   "mortgage",
		Short: "Monthly payment of a fixed-rate mortgage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Compute()
			v, ok := form.Result()
			printResult(cmd, "monthly payment", v, ok)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&form.Input.Principal, "principal", form.Input.Principal, "loan amount")
	f.Float64Var(&form.Input.AnnualRatePercent, "rate", form.Input.AnnualRatePercent, "annual interest rate in percent")
	f.Float64Var(&form.Input.TermYears, "years", form.Input.TermYears, "term in years")
	return cmd
}

func roiCommand() *cobra.Command {
	form := calculator.NewROIForm()
	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Annual rental yield of a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.Compute()
			v, ok := form.Result()
			printResult(cmd, "ROI (%)", v, ok)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&form.Input.Price, "price", form.Input.Price, "purchase price")
	f.Float64Var(&form.Input.AnnualRent, "rent", form.Input.AnnualRent, "annual rent")
	f.Float64Var(&form.Input.AnnualExpenses, "expenses", form.Input.AnnualExpenses, "annual expenses")
	return cmd
}

// printResult writes the two-decimal value. A form without a result prints a
// notice and the command still exits zero.
func printResult(cmd *cobra.Command, label string, v float64, ok bool) {
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no result: inputs must be positive")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", label, calculator.Format(v))
}
