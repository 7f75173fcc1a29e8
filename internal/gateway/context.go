package gateway

import (
	"collabboard/internal/domain"
	"collabboard/internal/hub"
)

// ConnectionContext 保存单个连接在网关侧的全部状态。
// 只在 Hub 事件循环的 goroutine 里读写，不需要加锁。
type ConnectionContext struct {
	client   *hub.Client
	inboxSub *hub.Subscription // 连接期间始终持有

	// 房间绑定状态，进房时设置、离房时清理。
	roomID    int64
	drawingID int64
	roomSub   *hub.Subscription

	// pending 缓冲当前笔画已到达的点，在 mouseup 时与
	// 完整性令牌比对并批量持久化。
	pending []domain.DrawingPoint

	// awaitingCorrection 表示已向此连接发出 resend 请求，
	// 只接受一次修正回复。
	awaitingCorrection bool
}

// inRoom 报告连接当前是否绑定到某个房间。
func (c *ConnectionContext) inRoom() bool {
	return c.roomSub != nil
}

// resetRoomState 清除房间绑定状态。订阅的释放由调用方负责。
func (c *ConnectionContext) resetRoomState() {
	c.roomID = 0
	c.drawingID = 0
	c.roomSub = nil
	c.pending = nil
	c.awaitingCorrection = false
}
