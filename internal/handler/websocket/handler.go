// Package websocket 处理 WebSocket 升级请求并把连接注册到 Hub。
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collabboard/internal/hub"
)

// Handler 负责处理 WebSocket 升级请求和客户端注册。
// 房间的加入与离开在连接建立后通过事件完成，升级时只需要身份。
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewHandler 创建 Handler 实例。
func NewHandler(h *hub.Hub) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: 生产环境按配置校验 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
	}
}

// HandleConnection 处理 WebSocket 连接请求。
// 身份由 Auth 中间件写入请求上下文。
func (h *Handler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	username, _ := c.Get("username")
	displayName, _ := username.(string)
	if displayName == "" {
		displayName = c.Query("user")
	}

	connID := uuid.NewString()
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "conn_id": connID})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经发送了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connID, userID, displayName)
	if !h.hub.QueueRegister(client) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		conn.Close()
		return
	}
	client.Run()
}
