/*
Copyright © 2025 metislabs
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/metislabs/rag-be/config"
	"github.com/metislabs/rag-be/database"
	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

// batchIngestCmd represents the batch-ingest command
var batchIngestCmd = &cobra.Command{
	Use:   "batch-ingest",
	Short: "Ingest every supported document under a directory",
	Long: `Walks a directory tree, chunks every supported document, and writes
the chunks to the local vector index. Files that fail to process are
skipped and logged. With --reinit the index is cleared first.`,
	Run: func(cmd *cobra.Command, args []string) {
		dirPath, _ := cmd.Flags().GetString("dir")
		if dirPath == "" {
			log.Fatal("--dir is required")
		}
		reinit, _ := cmd.Flags().GetBool("reinit")

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		documentService := service.NewDocumentService(types.DocumentServiceConfig{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		})
		aiService := service.NewOpenAIService(cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		vectorIndex, err := database.NewSQLiteIndex(cfg.VectorStorePath, aiService)
		if err != nil {
			log.Fatalf("Failed to open vector index: %v", err)
		}
		defer vectorIndex.Close()

		ctx := context.Background()
		if reinit {
			if err := vectorIndex.Clear(ctx); err != nil {
				log.Fatalf("Failed to clear vector index: %v", err)
			}
			log.Println("Vector index cleared")
		}

		chunks, err := documentService.ProcessDirectory(dirPath)
		if err != nil {
			log.Fatalf("Failed to process directory: %v", err)
		}
		if err := vectorIndex.Add(ctx, chunks, database.DefaultBatchSize); err != nil {
			log.Fatalf("Failed to index documents: %v", err)
		}

		fmt.Printf("Ingested %d chunks from %s\n", len(chunks), dirPath)
	},
}

func init() {
	rootCmd.AddCommand(batchIngestCmd)

	batchIngestCmd.Flags().StringP("dir", "d", "", "Directory to ingest")
	batchIngestCmd.Flags().Bool("reinit", false, "Clear the index before ingesting")
}
