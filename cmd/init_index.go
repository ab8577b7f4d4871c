/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/sikoma-be/repository"
	"go.uber.org/zap"
)

// initIndexCmd represents the init-index command
var initIndexCmd = &cobra.Command{
	Use:   "init-index",
	Short: "Create the collections and vector indexes the backend needs",
	Long: `Creates the Mongo secondary indexes and the Atlas vector search index over
chunk embeddings, or the Weaviate chunk class when that backend is selected.

--reinit drops and recreates the Weaviate class. --purge-files deletes every
file previously uploaded to the Gemini Files API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reinit, _ := cmd.Flags().GetBool("reinit")
		purgeFiles, _ := cmd.Flags().GetBool("purge-files")

		a, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())
		ctx := cmd.Context()

		if a.mongoDb == nil {
			a.logger.Info("Memory backend selected, nothing to initialize")
		} else {
			if err := repository.EnsureDocumentIndexes(ctx, a.mongoDb); err != nil {
				return fmt.Errorf("failed to create document indexes: %w", err)
			}
			a.logger.Info("Document indexes ready")
		}

		switch {
		case a.weaviate != nil && reinit:
			if err := a.weaviate.ReInit(ctx); err != nil {
				return err
			}
			a.logger.Info("Weaviate chunk class recreated")
		case a.weaviate != nil:
			if err := a.weaviate.EnsureSchema(ctx); err != nil {
				return err
			}
			a.logger.Info("Weaviate chunk class ready")
		case a.mongoDb != nil:
			if err := repository.EnsureChunkIndexes(ctx, a.mongoDb, a.cfg.Mongo.VectorIndex, a.cfg.AI.EmbeddingDimensions); err != nil {
				return err
			}
			a.logger.Info("Chunk indexes ready",
				zap.String("vectorIndex", a.cfg.Mongo.VectorIndex),
				zap.Int("dimensions", a.cfg.AI.EmbeddingDimensions),
			)
		}

		if purgeFiles {
			if a.gemini == nil {
				return fmt.Errorf("--purge-files needs the gemini provider")
			}
			n, err := a.gemini.PurgeFiles(ctx)
			if err != nil {
				return fmt.Errorf("failed to purge uploaded files: %w", err)
			}
			a.logger.Info("Purged uploaded files", zap.Int("count", n))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initIndexCmd)

	initIndexCmd.Flags().BoolP("reinit", "r", false, "Drop and recreate the Weaviate chunk class")
	initIndexCmd.Flags().Bool("purge-files", false, "Delete every file uploaded to the Gemini Files API")
}
