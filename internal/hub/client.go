package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 一个用户可以有多个并发连接，connID 区分它们。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	connID   string
	userID   uint
	username string
	send     chan []byte // 向此客户端发送消息的缓冲通道
}

// NewClient 创建一个新的 Client 实例。
func NewClient(h *Hub, conn *websocket.Conn, connID string, userID uint, username string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		connID:   connID,
		userID:   userID,
		username: username,
		send:     make(chan []byte, 256),
	}
}

func (c *Client) ConnID() string   { return c.connID }
func (c *Client) UserID() uint     { return c.userID }
func (c *Client) Username() string { return c.username }

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Send 非阻塞地向此客户端投递一条消息。
// 通道满（慢客户端）时丢弃并返回 false，由 WritePump 的
// ping 机制负责最终断开失活的连接。
func (c *Client) Send(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
			Warn("Client send channel full, dropping message")
		return false
	}
}

// SendEvent 编码并投递一个事件。编码失败只记录日志。
func (c *Client) SendEvent(event string, payload interface{}) {
	message, err := EncodeEvent(event, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"conn_id": c.connID, "event": event}).
			Error("Failed to encode outbound event")
		return
	}
	c.Send(message)
}

// ReadPump 把消息从 WebSocket 连接泵送到 Hub 的处理通道。
// 它在自己的 goroutine 中运行；退出时触发注销。
func (c *Client) ReadPump() {
	defer func() {
		c.hub.QueueUnregister(c)
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
			Info("readPump exited, unregistering client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.queueEvent(c, message)
	}
}

// WritePump 把消息从 send 通道泵送到 WebSocket 连接，
// 并定期发送 ping 保活。它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 在注销时关闭了 send 通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
					WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
