// Package hub 维护实时连接注册表：每个 WebSocket 连接一个 Client，
// 连接可以订阅任意多个命名作用域（房间、收件箱），广播按作用域投递。
// 所有注册、注销和入站事件都在单一事件循环里顺序处理，
// 保证同一连接的事件（尤其是笔画点）严格按到达顺序消费。
package hub

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	// 修正事件携带整组点数据，需要比普通聊天消息大得多的上限。
	maxMessageSize = 64 * 1024
)

// SessionHandler 处理连接生命周期和入站事件的业务逻辑。
// 三个方法都在 Hub 的事件循环 goroutine 里被同步调用。
type SessionHandler interface {
	HandleConnect(client *Client)
	HandleDisconnect(client *Client)
	HandleEvent(client *Client, env Envelope)
}

// hubMessage 是事件循环内部通道传递的消息。
type hubMessage struct {
	kind   string // "register", "unregister", "event"
	client *Client
	raw    []byte // 仅 event 使用
}

// Hub 维护活跃客户端集合和作用域订阅，并驱动事件循环。
type Hub struct {
	messageChan chan hubMessage

	// clients 是全部活跃连接；scopes 按作用域名组织订阅者。
	clients map[*Client]bool
	scopes  map[string]map[*Client]bool
	mu      sync.RWMutex

	handler SessionHandler
}

// NewHub 创建并返回一个新的 Hub 实例。
// 必须在 Run 之前通过 SetHandler 注入业务处理器。
func NewHub() *Hub {
	return &Hub{
		messageChan: make(chan hubMessage, 512),
		clients:     make(map[*Client]bool),
		scopes:      make(map[string]map[*Client]bool),
	}
}

// SetHandler 注入业务处理器。Hub 和网关互相依赖，
// 网关构造时需要 Hub，因此处理器在构造后单独注入。
func (h *Hub) SetHandler(handler SessionHandler) {
	if handler == nil {
		panic("SessionHandler cannot be nil for Hub")
	}
	h.handler = handler
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
//
// 与把每个事件扔进新 goroutine 不同，这里同步处理：
// 笔画点的持久化顺序必须与到达顺序一致，否则完整性校验毫无意义。
func (h *Hub) Run() {
	if h.handler == nil {
		panic("Hub.Run called before SetHandler")
	}
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.kind {
		case "register":
			h.registerClient(msg.client)
		case "unregister":
			h.unregisterClient(msg.client)
		case "event":
			h.dispatchEvent(msg.client, msg.raw)
		default:
			log.Warnf("Received unknown hub message kind: %s", msg.kind)
		}
	}
	log.Info("Hub is shutting down...")
}

// registerClient 把客户端加入注册表并通知业务处理器。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"user_id": client.userID,
	}).Info("Client registered to Hub")

	h.handler.HandleConnect(client)
}

// unregisterClient 把客户端从注册表和所有作用域移除，
// 关闭其发送通道，然后通知业务处理器。
// 先移除再通知：处理器看到的是该连接消失之后的世界。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return // 重复注销
	}
	delete(h.clients, client)
	for scope, members := range h.scopes {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.scopes, scope)
			}
		}
	}
	close(client.send)
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"user_id": client.userID,
	}).Info("Client unregistered from Hub")

	h.handler.HandleDisconnect(client)
}

// dispatchEvent 解析信封并同步交给业务处理器。
func (h *Hub) dispatchEvent(client *Client, raw []byte) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"conn_id": client.connID,
			"user_id": client.userID,
		}).Warn("Dropping malformed client message")
		client.SendEvent("error", map[string]string{"message": "malformed message"})
		return
	}
	h.handler.HandleEvent(client, env)
}

// --- 连接生命周期入口 ---

// QueueRegister 请求注册一个客户端（非阻塞）。
// 返回 false 表示事件队列已满。
func (h *Hub) QueueRegister(client *Client) bool {
	return h.queue(hubMessage{kind: "register", client: client})
}

// QueueUnregister 请求注销一个客户端（非阻塞）。
func (h *Hub) QueueUnregister(client *Client) bool {
	return h.queue(hubMessage{kind: "unregister", client: client})
}

func (h *Hub) queueEvent(client *Client, raw []byte) bool {
	return h.queue(hubMessage{kind: "event", client: client, raw: raw})
}

func (h *Hub) queue(msg hubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"kind":    msg.kind,
			"conn_id": msg.client.connID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

// --- 作用域订阅 ---

// Subscription 代表一个连接对某个作用域的订阅。
// Release 是幂等的：不论退出路径如何，订阅都保证被释放一次。
type Subscription struct {
	hub    *Hub
	client *Client
	scope  string
	once   sync.Once
}

// Scope 返回订阅的作用域名。
func (s *Subscription) Scope() string { return s.scope }

// Release 释放订阅。重复调用无副作用。
func (s *Subscription) Release() {
	s.once.Do(func() {
		s.hub.leave(s.client, s.scope)
	})
}

// Join 让客户端订阅一个作用域，返回对应的订阅句柄。
func (h *Hub) Join(client *Client, scope string) *Subscription {
	h.mu.Lock()
	members, ok := h.scopes[scope]
	if !ok {
		members = make(map[*Client]bool)
		h.scopes[scope] = members
	}
	members[client] = true
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"user_id": client.userID,
		"scope":   scope,
	}).Debug("Client joined scope")
	return &Subscription{hub: h, client: client, scope: scope}
}

func (h *Hub) leave(client *Client, scope string) {
	h.mu.Lock()
	if members, ok := h.scopes[scope]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.scopes, scope)
		}
	}
	h.mu.Unlock()
}

// --- 广播 ---

// BroadcastAll 把消息发给全部活跃连接，except 不为 nil 时排除它。
func (h *Hub) BroadcastAll(message []byte, except *Client) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client != except {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.Send(message)
	}
}

// BroadcastScope 把消息发给某个作用域的全部订阅者，
// except 不为 nil 时排除它。作用域不存在时不做任何事。
func (h *Hub) BroadcastScope(scope string, message []byte, except *Client) {
	h.mu.RLock()
	members, ok := h.scopes[scope]
	recipients := make([]*Client, 0, len(members))
	if ok {
		for client := range members {
			if client != except {
				recipients = append(recipients, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		client.Send(message)
	}
}

// EmitAll 编码事件并广播给全部连接。
func (h *Hub) EmitAll(event string, payload interface{}, except *Client) {
	message, err := EncodeEvent(event, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode broadcast event")
		return
	}
	h.BroadcastAll(message, except)
}

// EmitScope 编码事件并广播给某个作用域。
func (h *Hub) EmitScope(scope, event string, payload interface{}, except *Client) {
	message, err := EncodeEvent(event, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"event": event, "scope": scope}).
			Error("Failed to encode scoped broadcast event")
		return
	}
	h.BroadcastScope(scope, message, except)
}

// --- 在线名单 ---

// GlobalPresence 从活跃连接重新计算全局在线名单。
// 同一用户的多个连接合并为一条记录。
func (h *Hub) GlobalPresence() domain.PresenceSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	online := make(domain.PresenceSet, len(h.clients))
	for client := range h.clients {
		online.Add(client.userID, client.username)
	}
	return online
}

// ScopePresence 从某个作用域的订阅者重新计算在线名单。
func (h *Hub) ScopePresence(scope string) domain.PresenceSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	online := make(domain.PresenceSet)
	for client := range h.scopes[scope] {
		online.Add(client.userID, client.username)
	}
	return online
}

// ScopeSize 返回某个作用域当前的订阅连接数。
func (h *Hub) ScopeSize(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}
