package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codescout/internal/arbiter"
	"codescout/internal/llm"
)

var flagAskTopK int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Search and let a chat model pick the best match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]

		engine, st, err := newEngine()
		if err != nil {
			return err
		}
		defer st.Close()

		candidates, err := engine.Retrieve(query, flagAskTopK, true)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No results.")
			return nil
		}

		chat := llm.NewOllamaChat(flagOllama, flagChatModel)
		chosen, err := arbiter.New(chat).Select(cmd.Context(), query, candidates)
		if err != nil {
			return err
		}

		name := color.New(color.FgCyan, color.Bold)
		loc := color.New(color.FgYellow)
		name.Printf("%s", chosen.Row.Name)
		fmt.Print("  ")
		loc.Printf("%s:%d\n", chosen.Row.Location, chosen.Row.StartLine)
		if chosen.Row.Docstring != "" {
			fmt.Printf("%s\n", chosen.Row.Docstring)
		}
		fmt.Printf("\n%s\n", chosen.Row.Code())
		return nil
	},
}

func init() {
	askCmd.Flags().IntVarP(&flagAskTopK, "top-k", "k", 5, "candidates offered to the chat model")
	rootCmd.AddCommand(askCmd)
}
