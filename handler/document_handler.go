package handler

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metislabs/rag-be/database"
	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

type DocumentHandler struct {
	index      database.VectorIndex
	ingest     *service.IngestService
	historyDir string
}

func NewDocumentHandler(index database.VectorIndex, ingest *service.IngestService, historyDir string) *DocumentHandler {
	return &DocumentHandler{
		index:      index,
		ingest:     ingest,
		historyDir: historyDir,
	}
}

func (h *DocumentHandler) HandleListDocuments(c *gin.Context) {
	documents, err := h.index.ListDocuments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	totalChunks := 0
	for _, doc := range documents {
		totalChunks += doc.ChunkCount
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.DocumentListResponse{
			Documents:      documents,
			TotalDocuments: len(documents),
			TotalChunks:    totalChunks,
		},
	})
}

func (h *DocumentHandler) HandleStats(c *gin.Context) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.StatsResponse{
			VectorStore:       stats,
			UploadedDocuments: h.ingest.CountUploads(),
			ChatHistories:     h.countHistories(),
		},
	})
}

// HandleClear wipes the vector index, stored uploads, and chat
// histories. Not reversible.
func (h *DocumentHandler) HandleClear(c *gin.Context) {
	if err := h.index.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	if err := h.ingest.ClearUploads(); err != nil {
		log.Printf("Error clearing uploads: %v", err)
	}
	h.clearHistories()

	c.JSON(http.StatusOK, types.DataResponse{
		Status:  "success",
		Message: "System cleared successfully",
	})
}

func (h *DocumentHandler) countHistories() int {
	entries, err := os.ReadDir(h.historyDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".json") {
			count++
		}
	}
	return count
}

func (h *DocumentHandler) clearHistories() {
	entries, err := os.ReadDir(h.historyDir)
	if err != nil {
		log.Printf("Error reading chat history directory: %v", err)
		return
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(h.historyDir, entry.Name())); err != nil {
			log.Printf("Error removing chat history %s: %v", entry.Name(), err)
		}
	}
}
