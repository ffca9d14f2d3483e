package http

import (
	"net/http"

	"rillcast/internal/core/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *services.AuthStore
}

func NewAuthHandler(auth *services.AuthStore) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) SetupRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/sign-in", h.SignIn)
		auth.POST("/sign-out", h.SignOut)
		auth.GET("/me", h.Me)
	}
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	if err := h.auth.SignIn(c.Request.Context()); err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, h.auth.Snapshot())
}

// SignOut reports provider errors but the user is signed out regardless.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context()); err != nil {
		c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, h.auth.Snapshot())
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.Snapshot())
}
