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
	"github.com/metislabs/rag-be/utils"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single document into the vector index",
	Long: `Chunks one document, embeds the chunks, and writes them to the
local vector index. The file is copied into the upload directory so the
server can serve it afterwards.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		if filePath == "" {
			log.Fatal("--file is required")
		}

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

		storedPath, err := utils.CopyFileWithTimestamp(filePath, cfg.UploadDir)
		if err != nil {
			log.Fatalf("Failed to store file: %v", err)
		}

		chunks, err := documentService.ProcessFile(storedPath)
		if err != nil {
			log.Fatalf("Failed to process document: %v", err)
		}
		if err := vectorIndex.Add(context.Background(), chunks, database.DefaultBatchSize); err != nil {
			log.Fatalf("Failed to index document: %v", err)
		}

		fmt.Printf("Ingested %s: %d chunks\n", filePath, len(chunks))
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("file", "f", "", "Path to the file to ingest")
}
