package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

type QueryHandler struct {
	queries *service.QueryService
}

func NewQueryHandler(queries *service.QueryService) *QueryHandler {
	return &QueryHandler{
		queries: queries,
	}
}

func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.Question == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Question is required",
		})
		return
	}

	answer, err := h.queries.Answer(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var notFound *types.ModelNotFoundError
		if errors.As(err, &notFound) {
			status = http.StatusBadRequest
		}
		c.JSON(status, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	// Hand the caller a session id it can reuse for follow-ups.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = time.Now().Format("20060102_150405")
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.QueryResponse{
			Answer:    answer,
			SessionID: sessionID,
		},
	})
}
