package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xtxerr/rebin/internal/aggregate"
	"github.com/xtxerr/rebin/internal/schema"
	"github.com/xtxerr/rebin/internal/swap"
)

var (
	resizeXFF         float64
	resizeAggregation string
	resizeForce       bool
	resizeNewFile     string
	resizeNoBackup    bool
)

var resizeCmd = &cobra.Command{
	Use:   "resize PATH RETENTION...",
	Short: "Migrate a store to a new retention schema",
	Long: "Resize migrates every archive of the store at PATH into a new " +
		"store built from the RETENTION definitions, then atomically " +
		"replaces the original, keeping it as PATH.bak. Migrations that " +
		"would drop data are refused unless --force is given.",
	Args: cobra.MinimumNArgs(2),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().Float64Var(&resizeXFF, "xff", 0.5, "completeness threshold for aggregation, in [0, 1]")
	resizeCmd.Flags().StringVar(&resizeAggregation, "aggregation", "",
		"aggregation method: "+strings.Join(aggregate.MethodNames(), ", "))
	resizeCmd.Flags().BoolVar(&resizeForce, "force", false, "permit migrations that drop data")
	resizeCmd.Flags().StringVar(&resizeNewFile, "newfile", "", "write the resized store here and leave the original in place")
	resizeCmd.Flags().BoolVar(&resizeNoBackup, "nobackup", false, "delete the backup after a successful swap")
}

func runResize(cmd *cobra.Command, args []string) error {
	s, err := schema.Parse(args[1:])
	if err != nil {
		return err
	}

	opts := swap.Options{
		Path:     args[0],
		Schema:   s,
		Force:    resizeForce,
		NewPath:  resizeNewFile,
		NoBackup: resizeNoBackup || !cfg.Defaults.KeepBackup,
	}

	// Unset policy flags fall back to the config file, then to whatever
	// the store already carries.
	if cmd.Flags().Changed("xff") {
		opts.XFilesFactor = &resizeXFF
	} else if cfg.Defaults.XFilesFactor != nil {
		opts.XFilesFactor = cfg.Defaults.XFilesFactor
	}
	name := resizeAggregation
	if name == "" {
		name = cfg.Defaults.AggregationMethod
	}
	if name != "" {
		m, err := aggregate.ParseMethod(name)
		if err != nil {
			return err
		}
		opts.Method = &m
	}

	stats, err := swap.Run(opts)
	if err != nil {
		return err
	}
	fmt.Printf("migrated %d archives: %d points copied, %d aggregated, %d archives dropped\n",
		stats.ArchivesMigrated, stats.PointsCopied, stats.PointsAggregated, stats.ArchivesDropped)
	return nil
}
