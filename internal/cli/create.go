package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/schema"
	"github.com/xtxerr/rebin/internal/store"
)

var (
	createXFF         float64
	createAggregation string
)

var createCmd = &cobra.Command{
	Use:   "create PATH RETENTION...",
	Short: "Create a new store",
	Long: "Create a new store at PATH with one archive per RETENTION " +
		"definition. A definition is precision:points, where either side " +
		"may carry a duration unit, e.g. 60:1440, 15m:8 or 1h:7d.",
	Args: cobra.MinimumNArgs(2),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().Float64Var(&createXFF, "xff", 0.5, "completeness threshold for aggregation, in [0, 1]")
	createCmd.Flags().StringVar(&createAggregation, "aggregation", "",
		"aggregation method: "+strings.Join(aggregate.MethodNames(), ", "))
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := schema.Parse(args[1:])
	if err != nil {
		return err
	}

	xff := createXFF
	if !cmd.Flags().Changed("xff") && cfg.Defaults.XFilesFactor != nil {
		xff = *cfg.Defaults.XFilesFactor
	}

	name := createAggregation
	if name == "" {
		name = cfg.Defaults.AggregationMethod
	}
	method := aggregate.MethodAverage
	if name != "" {
		if method, err = aggregate.ParseMethod(name); err != nil {
			return err
		}
	}

	if err := store.Create(args[0], s, xff, method); err != nil {
		return err
	}
	fmt.Printf("created %s (%s, xff %g, %s)\n", args[0], s, xff, method)
	return nil
}
