package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"codescout/internal/index"
)

var flagWorkers int

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a codebase for search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		if flagPostgres == "" {
			if err := os.MkdirAll(filepath.Dir(flagDB), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		emb, err := newEmbedder()
		if err != nil {
			return err
		}

		idx, err := index.New(st, emb, buildConfig(), flagWorkers)
		if err != nil {
			return err
		}

		fmt.Printf("Indexing %s...\n", root)
		start := time.Now()

		stats, err := idx.Index(root)
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Files:   %d indexed, %d failed\n", stats.FilesTotal, stats.FilesFailed)
			fmt.Printf("  Chunks:  %d\n", stats.ChunksTotal)
			if stats.Generation != "" {
				fmt.Printf("  Generation: %s\n", stats.Generation)
			}
		}

		return err
	},
}

func init() {
	indexCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel chunking workers")
	rootCmd.AddCommand(indexCmd)
}
