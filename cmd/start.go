/*
Copyright © 2025 metislabs
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/metislabs/rag-be/config"
	"github.com/metislabs/rag-be/database"
	"github.com/metislabs/rag-be/handler"
	"github.com/metislabs/rag-be/middleware"
	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the RAG query server",
	Long:  `Starts the HTTP server that handles document uploads and RAG queries`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		// Initialize services
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

		conversationStore, err := database.NewFileConversationStore(cfg.ChatHistoryDir)
		if err != nil {
			log.Fatalf("Failed to open conversation store: %v", err)
		}

		queryService := service.NewQueryService(vectorIndex, conversationStore, aiService)
		ingestService, err := service.NewIngestService(cfg.UploadDir, documentService, vectorIndex, cfg.Ingest.QueueSize)
		if err != nil {
			log.Fatalf("Failed to initialize ingest service: %v", err)
		}
		wsService := service.NewWebSocketService(queryService)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ingestService.Start(ctx, cfg.Ingest.Workers)
		defer ingestService.Stop()

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		queryHandler := handler.NewQueryHandler(queryService)
		uploadHandler := handler.NewUploadHandler(ingestService)
		documentHandler := handler.NewDocumentHandler(vectorIndex, ingestService, cfg.ChatHistoryDir)
		modelHandler := handler.NewModelHandler(aiService)
		loginHandler := handler.NewLoginHandler(cfg.Auth)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		apiV1.POST("/login", loginHandler.HandleLogin)
		apiV1.POST("/query", queryHandler.HandleQuery)
		apiV1.GET("/models", modelHandler.HandleListModels)
		apiV1.GET("/documents", documentHandler.HandleListDocuments)
		apiV1.GET("/ws", func(c *gin.Context) {
			wsService.HandleQuery(c.Writer, c.Request)
		})

		// Admin routes - require authentication when enabled
		adminRoutes := apiV1.Group("/")
		adminRoutes.Use(middleware.AuthMiddleware(cfg.Auth.Enabled, cfg.Auth.Secret))
		{
			adminRoutes.POST("/upload", uploadHandler.HandleUpload)
			adminRoutes.GET("/jobs/:id", uploadHandler.HandleJobStatus)
			adminRoutes.GET("/stats", documentHandler.HandleStats)
			adminRoutes.DELETE("/clear", documentHandler.HandleClear)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
