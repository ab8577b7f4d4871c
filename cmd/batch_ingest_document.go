/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

var batchIngestOpts ingestFlags

// batchIngestDocumentCmd represents the batch-ingest command
var batchIngestDocumentCmd = &cobra.Command{
	Use:   "batch-ingest",
	Short: "Ingest every supported file in a directory",
	Long: `Walks a directory and ingests each PDF, DOCX, image or text file in turn.
A failed file is logged and skipped; the command fails only when nothing
could be ingested.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		directory, _ := cmd.Flags().GetString("directory")
		recursive, _ := cmd.Flags().GetBool("recursive")
		if directory == "" {
			return fmt.Errorf("--directory is required")
		}

		files, err := collectFiles(directory, recursive)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no supported files in %s", directory)
		}

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		var ingested, partial, failed int
		for _, filePath := range files {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			opts := batchIngestOpts
			opts.subject = ""
			res, err := ingestFile(cmd.Context(), a.ingest, filePath, opts)
			if err != nil {
				failed++
				a.logger.Error("Failed to ingest document", zap.String("file", filePath), zap.Error(err))
				continue
			}
			if res.IndexStatus == types.INDEX_STATUS_PARTIALLY_INDEXED {
				partial++
			}
			ingested++
			a.logger.Info("Ingested document",
				zap.String("file", filePath),
				zap.String("docId", res.DocID),
				zap.Int("chunks", res.ChunkCount),
				zap.String("indexStatus", res.IndexStatus),
			)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d of %d files (%d partially indexed, %d failed)\n", ingested, len(files), partial, failed)
		if ingested == 0 {
			return fmt.Errorf("every file failed to ingest")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchIngestDocumentCmd)

	batchIngestDocumentCmd.Flags().String("directory", "", "Path to the dir to ingest")
	batchIngestDocumentCmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	batchIngestDocumentCmd.Flags().StringVar(&batchIngestOpts.author, "author", "", "Author for every file")
	batchIngestDocumentCmd.Flags().StringVar(&batchIngestOpts.status, "status", types.DOCUMENT_STATUS_UPLOADED, "Workflow status for every file")
	batchIngestDocumentCmd.Flags().StringVar(&batchIngestOpts.org, "org", "", "Organization id")
}

// collectFiles lists the supported files under directory in lexical order.
func collectFiles(directory string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != directory && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	return files, nil
}

func supportedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := f.Read(head)
	return utils.IsSupportedDocument(utils.DetectMimeType(head[:n], filepath.Base(path)))
}
