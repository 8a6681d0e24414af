package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtxerr/rebin/internal/store"
)

var infoCmd = &cobra.Command{
	Use:   "info PATH",
	Short: "Print a store's header and archive layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, err := store.Open(args[0])
	if err != nil {
		return err
	}
	defer st.Close()

	info := st.Info()
	fmt.Printf("path: %s\n", st.Path())
	fmt.Printf("aggregation method: %s\n", info.Method)
	fmt.Printf("x-files-factor: %g\n", info.XFilesFactor)
	fmt.Printf("max retention: %ds\n", info.Schema.MaxRetention())
	for i, r := range info.Schema {
		fmt.Printf("archive %d: %ds per point, %d points, %ds retention\n",
			i, r.SecondsPerPoint, r.Points, r.MaxRetention())
	}
	return nil
}
