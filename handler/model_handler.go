package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metislabs/rag-be/service"
	"github.com/metislabs/rag-be/types"
)

type ModelHandler struct {
	backend service.GenerationBackend
}

func NewModelHandler(backend service.GenerationBackend) *ModelHandler {
	return &ModelHandler{
		backend: backend,
	}
}

func (h *ModelHandler) HandleListModels(c *gin.Context) {
	models, err := h.backend.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   types.ModelListResponse{Models: models},
	})
}
