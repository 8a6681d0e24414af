package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/rebin/internal/export"
	"github.com/xtxerr/rebin/internal/store"
)

var exportCompression string

var exportCmd = &cobra.Command{
	Use:   "export PATH OUTPUT",
	Short: "Export a store's samples to a Parquet file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportCompression, "compression", "",
		"parquet codec: none, snappy, zstd, lz4, gzip")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := store.Open(args[0])
	if err != nil {
		return err
	}
	defer st.Close()

	compression := exportCompression
	if compression == "" {
		compression = cfg.Export.Compression
	}

	rows, err := export.Write(st, args[1], export.Options{
		Compression: compression,
		Now:         time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported %d rows to %s\n", rows, args[1])
	return nil
}
