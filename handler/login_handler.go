package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metislabs/rag-be/config"
	"github.com/metislabs/rag-be/types"
	"github.com/metislabs/rag-be/utils"
)

type LoginHandler struct {
	auth config.AuthConfig
}

func NewLoginHandler(auth config.AuthConfig) *LoginHandler {
	return &LoginHandler{
		auth: auth,
	}
}

func (h *LoginHandler) HandleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.auth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.auth.Password)) == 1
	if !userOK || !passOK {
		c.JSON(http.StatusUnauthorized, types.DataResponse{
			Status:  "error",
			Message: "Invalid credentials",
		})
		return
	}

	token, err := utils.GenerateToken(req.Username, h.auth.Secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "Failed to generate token",
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   types.LoginResponse{Token: token},
	})
}
