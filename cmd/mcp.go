package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"codescout/internal/retrieval"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing code search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	s := mcpserver.NewMCPServer("codescout", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchCodeTool(), makeSearchHandler(engine))
	s.AddTool(searchFilesTool(), makeSearchFilesHandler(engine))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Search the indexed codebase with hybrid vector + keyword retrieval and cross-encoder re-ranking. Returns ranked functions with locations and scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (default 5)"),
		),
		mcp.WithBoolean("two_stage",
			mcp.Description("Rank files first, then functions within the top files"),
		),
	)
}

func searchFilesTool() mcp.Tool {
	return mcp.NewTool("search_files",
		mcp.WithDescription("Rank whole files by relevance to the query instead of individual functions."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of files (default 5)"),
		),
	)
}

func makeSearchHandler(engine *retrieval.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 5)
		if k <= 0 {
			k = 5
		}

		var (
			candidates []retrieval.Candidate
			err        error
		)
		if req.GetBool("two_stage", false) {
			candidates, err = engine.RetrieveTwoStage(query, k)
		} else {
			candidates, err = engine.Retrieve(query, k, true)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(query, candidates)), nil
	}
}

func makeSearchFilesHandler(engine *retrieval.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", 5)
		if k <= 0 {
			k = 5
		}

		files, err := engine.RetrieveFiles(query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("file search failed: %v", err)), nil
		}
		if len(files) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No files found for query: %q", query)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Files for %q (%d)\n\n", query, len(files))
		for i, f := range files {
			fmt.Fprintf(&sb, "%d. **%s** (score %.3f)\n", i+1, f.Path, f.Score)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func formatSearchResults(query string, candidates []retrieval.Candidate) string {
	if len(candidates) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d)\n\n", query, len(candidates))

	for i, c := range candidates {
		fmt.Fprintf(&sb, "### Result %d: `%s`\n\n", i+1, c.Row.Location)
		score := c.RerankScore
		if c.HasCombined {
			score = c.CombinedScore
		}
		fmt.Fprintf(&sb, "**Name:** %s  \n**Line:** %d  \n**Score:** %.3f\n\n",
			c.Row.Name, c.Row.StartLine, score)
		if c.Row.Docstring != "" {
			fmt.Fprintf(&sb, "%s\n\n", c.Row.Docstring)
		}
		fmt.Fprintf(&sb, "```\n%s\n```\n\n", c.Row.Code())
	}

	return sb.String()
}
