/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/sikoma-be/service"
	"github.com/tieubaoca/sikoma-be/types"
)

type ingestFlags struct {
	subject string
	author  string
	date    string
	status  string
	org     string
}

var ingestOpts ingestFlags

// ingestDocumentCmd represents the ingest command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one file into the document index",
	Long: `Extracts, summarizes, chunks and embeds a single file exactly like
POST /upload, then prints the ingestion result as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")
		if filePath == "" {
			return fmt.Errorf("--file is required")
		}

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		res, err := ingestFile(cmd.Context(), a.ingest, filePath, ingestOpts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)

	ingestDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to ingest")
	ingestDocumentCmd.Flags().StringVar(&ingestOpts.subject, "subject", "", "Document subject (defaults to the detected title)")
	ingestDocumentCmd.Flags().StringVar(&ingestOpts.author, "author", "", "Document author")
	ingestDocumentCmd.Flags().StringVar(&ingestOpts.date, "date", "", "Due date, YYYY-MM-DD")
	ingestDocumentCmd.Flags().StringVar(&ingestOpts.status, "status", types.DOCUMENT_STATUS_UPLOADED, "Workflow status")
	ingestDocumentCmd.Flags().StringVar(&ingestOpts.org, "org", "", "Organization id")
}

func ingestFile(ctx context.Context, ingest *service.IngestService, filePath string, opts ingestFlags) (*types.IngestResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return ingest.Ingest(ctx, types.IngestRequest{
		Data:           data,
		Filename:       filepath.Base(filePath),
		Subject:        opts.subject,
		Author:         opts.author,
		Date:           opts.date,
		Status:         opts.status,
		OrganizationID: opts.org,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
