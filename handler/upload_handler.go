package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

const maxUploadSize = 50 << 20

type UploadHandler struct {
	ingest *service.IngestService
}

func NewUploadHandler(ingest *service.IngestService) *UploadHandler {
	return &UploadHandler{
		ingest: ingest,
	}
}

// HandleUpload saves the uploaded files and queues them for background
// ingestion; processing status is exposed through the jobs endpoint.
func (h *UploadHandler) HandleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid multipart form",
		})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "No files provided",
		})
		return
	}

	// Validate the whole batch before saving or queueing anything.
	for _, file := range files {
		if file.Size > maxUploadSize {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "File too large: " + file.Filename,
			})
			return
		}
	}

	uploads := make([]types.UploadResponse, 0, len(files))
	queued := 0
	for _, file := range files {
		path, err := h.ingest.SaveUpload(file)
		if err != nil {
			log.Printf("Error storing upload %s: %v", file.Filename, err)
			uploads = append(uploads, types.UploadResponse{
				OriginalName: file.Filename,
				Error:        "failed to store file",
			})
			continue
		}
		job, err := h.ingest.Enqueue(path)
		if err != nil {
			uploads = append(uploads, types.UploadResponse{
				OriginalName: file.Filename,
				Error:        err.Error(),
			})
			continue
		}
		queued++
		uploads = append(uploads, types.UploadResponse{
			OriginalName: file.Filename,
			JobID:        job.ID,
		})
	}

	// Per-file failures never discard the job ids of files that were
	// queued; they ride along in the same response.
	if queued == 0 {
		c.JSON(http.StatusServiceUnavailable, types.DataResponse{
			Status:  "error",
			Message: "No documents could be queued",
			Data:    uploads,
		})
		return
	}
	c.JSON(http.StatusAccepted, types.DataResponse{
		Status:  "success",
		Message: "Documents uploaded and queued for processing",
		Data:    uploads,
	})
}

// HandleJobStatus reports the state of one ingest job.
func (h *UploadHandler) HandleJobStatus(c *gin.Context) {
	job, ok := h.ingest.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  "error",
			Message: "Job not found",
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   job,
	})
}
