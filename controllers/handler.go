package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/services"
	"go.uber.org/zap"
)

// Handler holds the services the HTTP endpoints delegate to.
type Handler struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Cars      *services.CarService
	Dashboard *services.DashboardService
	Export    *services.ExportService
	Log       *zap.Logger
}

// fail writes err as {"message": ...} with the status its kind maps to.
// Internal causes are logged and never sent to the client.
func (h *Handler) fail(c *gin.Context, err error) {
	se := services.AsError(err)
	if se.Kind == services.KindInternal {
		_ = c.Error(err)
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(se.Status(), gin.H{"message": se.Message})
}

// bind decodes a JSON body into v. An empty body leaves v untouched.
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return true
}
