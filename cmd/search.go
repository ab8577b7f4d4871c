/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/sikoma-be/types"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a semantic search and print the hits as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if strings.TrimSpace(query) == "" && len(args) > 0 {
			query = strings.Join(args, " ")
		}
		topK, _ := cmd.Flags().GetInt("top-k")
		withAnswer, _ := cmd.Flags().GetBool("answer")
		org, _ := cmd.Flags().GetString("org")
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("--query is required")
		}

		req := types.SearchRequest{
			Query:          query,
			TopK:           topK,
			WithAnswer:     withAnswer,
			OrganizationID: org,
		}
		if cmd.Flags().Changed("threshold") {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			req.Threshold = &threshold
		}

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		res, err := a.search.Search(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "", "Search query")
	searchCmd.Flags().IntP("top-k", "k", 0, "Maximum number of hits (0 uses the configured default)")
	searchCmd.Flags().Float64P("threshold", "t", 0, "Minimum similarity score in [0, 1]")
	searchCmd.Flags().Bool("answer", false, "Generate an answer from the hits")
	searchCmd.Flags().String("org", "", "Organization id")
}
