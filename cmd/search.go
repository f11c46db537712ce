package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codescout/internal/rerank"
	"codescout/internal/retrieval"
	"codescout/internal/store"
)

var (
	flagTopK     int
	flagNoHybrid bool
	flagTwoStage bool
	flagFiles    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed codebase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]

		engine, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		if flagFiles {
			files, err := engine.RetrieveFiles(query, flagTopK)
			if err != nil {
				return err
			}
			printFiles(files)
			return nil
		}

		var candidates []retrieval.Candidate
		if flagTwoStage {
			candidates, err = engine.RetrieveTwoStage(query, flagTopK)
		} else {
			candidates, err = engine.Retrieve(query, flagTopK, !flagNoHybrid)
		}
		if err != nil {
			return err
		}
		printCandidates(candidates)
		return nil
	},
}

// newEngine wires store, embedder, and cross-encoder into a loaded engine.
func newEngine() (*retrieval.Engine, store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	emb, err := newEmbedder()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	enc := rerank.NewHTTPCrossEncoder(flagRerankURL)

	engine, err := retrieval.NewEngine(st, emb, enc, buildConfig())
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if err := engine.Load(); err != nil {
		st.Close()
		if errors.Is(err, retrieval.ErrEmptyIndex) {
			return nil, nil, fmt.Errorf("index is empty, run `codescout index <path>` first")
		}
		return nil, nil, err
	}
	return engine, st, nil
}

func printCandidates(candidates []retrieval.Candidate) {
	if len(candidates) == 0 {
		fmt.Println("No results.")
		return
	}

	name := color.New(color.FgCyan, color.Bold)
	loc := color.New(color.FgYellow)
	score := color.New(color.FgGreen)

	for i, c := range candidates {
		fmt.Printf("%d. ", i+1)
		name.Printf("%s", c.Row.Name)
		fmt.Print("  ")
		loc.Printf("%s:%d", c.Row.Location, c.Row.StartLine)
		fmt.Print("  ")
		if c.HasCombined {
			score.Printf("%.3f (file %.3f, fn %.3f)\n", c.CombinedScore, c.FileScore, c.RerankScore)
		} else {
			score.Printf("%.3f\n", c.RerankScore)
		}
		if c.Row.Docstring != "" {
			fmt.Printf("   %s\n", c.Row.Docstring)
		}
	}
}

func printFiles(files []retrieval.FileScore) {
	if len(files) == 0 {
		fmt.Println("No results.")
		return
	}
	loc := color.New(color.FgYellow)
	score := color.New(color.FgGreen)
	for i, f := range files {
		fmt.Printf("%d. ", i+1)
		loc.Printf("%s", f.Path)
		fmt.Print("  ")
		score.Printf("%.3f\n", f.Score)
	}
}

func init() {
	searchCmd.Flags().IntVarP(&flagTopK, "top-k", "k", 5, "number of results")
	searchCmd.Flags().BoolVar(&flagNoHybrid, "no-hybrid", false, "vector similarity only, skip keyword search and re-ranking")
	searchCmd.Flags().BoolVar(&flagTwoStage, "two-stage", false, "rank files first, then functions within the top files")
	searchCmd.Flags().BoolVar(&flagFiles, "files", false, "return ranked files instead of functions")
	rootCmd.AddCommand(searchCmd)
}
