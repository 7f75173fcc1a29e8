package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collabboard/internal/service"
)

// DrawingHandler 提供画布点的只读 REST 查询，供客户端重载画布。
type DrawingHandler struct {
	drawingService *service.DrawingService
}

// NewDrawingHandler 创建 DrawingHandler 实例。
func NewDrawingHandler(drawingService *service.DrawingService) *DrawingHandler {
	if drawingService == nil {
		panic("DrawingService cannot be nil for DrawingHandler")
	}
	return &DrawingHandler{drawingService: drawingService}
}

// Points 返回指定画布的全部已持久化点。
// URL 格式: GET /api/drawings/:drawingId/points
func (h *DrawingHandler) Points(c *gin.Context) {
	drawingID, err := strconv.ParseInt(c.Param("drawingId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid drawing ID format"})
		return
	}

	points, err := h.drawingService.PointsForDrawing(c.Request.Context(), drawingID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"drawing_id": drawingID, "point_count": len(points)}).
		Debug("Handler.Points: drawing points served")
	c.JSON(http.StatusOK, gin.H{"drawingId": drawingID, "points": points})
}
