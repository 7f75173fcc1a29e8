package gateway

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/hub"
	"collabboard/internal/service"
)

// SessionHub 是 Gateway 依赖的连接注册表能力：作用域订阅、
// 广播和在线名单重算。生产实现是 *hub.Hub。
type SessionHub interface {
	Join(client *hub.Client, scope string) *hub.Subscription
	EmitAll(event string, payload interface{}, except *hub.Client)
	EmitScope(scope, event string, payload interface{}, except *hub.Client)
	GlobalPresence() domain.PresenceSet
	ScopePresence(scope string) domain.PresenceSet
	ScopeSize(scope string) int
}

var _ SessionHub = (*hub.Hub)(nil)

// Gateway 实现 hub.SessionHandler，是连接与业务服务之间的编排层。
// 所有回调都在 Hub 事件循环里同步执行，contexts 无需加锁。
type Gateway struct {
	hub      SessionHub
	rooms    *service.RoomService
	messages *service.MessageService
	drawing  *service.DrawingService
	presence *service.PresenceService

	contexts map[*hub.Client]*ConnectionContext
}

// New 创建 Gateway 实例。
func New(h SessionHub, rooms *service.RoomService, messages *service.MessageService, drawing *service.DrawingService, presence *service.PresenceService) *Gateway {
	if h == nil || rooms == nil || messages == nil || drawing == nil || presence == nil {
		panic("all dependencies must be non-nil for Gateway")
	}
	return &Gateway{
		hub:      h,
		rooms:    rooms,
		messages: messages,
		drawing:  drawing,
		presence: presence,
		contexts: make(map[*hub.Client]*ConnectionContext),
	}
}

// HandleConnect 处理新连接：建立连接上下文、订阅私人收件箱、
// 同步全局在线名单、下发引导负载，并把新名单广播给其他人。
func (g *Gateway) HandleConnect(client *hub.Client) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"conn_id": client.ConnID(),
		"user_id": client.UserID(),
	})

	cc := &ConnectionContext{
		client:   client,
		inboxSub: g.hub.Join(client, inboxScope(client.UserID())),
	}
	g.contexts[client] = cc

	online := g.hub.GlobalPresence()
	g.presence.Sync(ctx, online)

	// 引导负载：房间目录、全局消息、在线名单、私人收件箱。
	// 各部分独立失败，失败的部分以零值下发并记录日志。
	directory, err := g.rooms.ListRooms(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Bootstrap: failed to load room directory")
	}
	general, err := g.messages.GetGeneralMessages(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Bootstrap: failed to load general messages")
	}
	inbox, err := g.messages.Inbox(ctx, client.UserID())
	if err != nil {
		logCtx.WithError(err).Error("Bootstrap: failed to load inbox")
	}

	client.SendEvent(evtBootstrap, map[string]interface{}{
		"rooms":    directory,
		"messages": general,
		"online":   online,
		"inbox":    inbox,
	})
	g.hub.EmitAll(evtPresence, online, client)
	logCtx.Info("Connection established, bootstrap payload sent")
}

// HandleDisconnect 处理连接断开：先走离房路径（如果绑定过房间），
// 再重算并广播全局在线名单。Hub 已把该连接从注册表移除，
// 这里看到的在线名单不再包含它。
func (g *Gateway) HandleDisconnect(client *hub.Client) {
	ctx := context.Background()
	cc, ok := g.contexts[client]
	if !ok {
		return
	}
	delete(g.contexts, client)

	if cc.inRoom() {
		g.leaveRoom(ctx, cc)
	}
	cc.inboxSub.Release()

	online := g.hub.GlobalPresence()
	g.presence.Sync(ctx, online)
	g.hub.EmitAll(evtPresence, online, nil)

	logrus.WithFields(logrus.Fields{
		"conn_id": client.ConnID(),
		"user_id": client.UserID(),
	}).Info("Connection closed, presence updated")
}

// HandleEvent 分发一条入站事件。每个事件独立处理：
// 处理失败只记录日志并给发送方回一个 error 事件，
// 绝不中断连接或影响后续事件。
func (g *Gateway) HandleEvent(client *hub.Client, env hub.Envelope) {
	cc, ok := g.contexts[client]
	if !ok {
		logrus.WithField("conn_id", client.ConnID()).
			Warn("Event from client without connection context, dropping")
		return
	}

	ctx := context.Background()
	var err error

	switch env.Event {
	case evtGeneralMessages:
		err = g.onGeneralMessages(ctx, cc)
	case evtGeneralMessagesWrite:
		err = g.onGeneralMessageWrite(ctx, cc, env.Data)
	case evtGeneralTyping:
		g.onGeneralTyping(cc)
	case evtInboxMessage:
		err = g.onInboxMessage(ctx, cc, env.Data)
	case evtRoomList:
		err = g.onRoomList(ctx, cc)
	case evtRoomCreate:
		err = g.onRoomCreate(ctx, cc, env.Data)
	case evtRoomJoin:
		err = g.onRoomJoin(ctx, cc, env.Data)
	case evtRoomLeave:
		err = g.onRoomLeave(ctx, cc)
	default:
		err = g.dispatchRoomEvent(ctx, cc, env)
	}

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"conn_id": client.ConnID(),
			"user_id": client.UserID(),
			"event":   env.Event,
		}).Warn("Event handler failed")
		client.SendEvent(evtError, map[string]string{
			"event":   env.Event,
			"message": err.Error(),
		})
	}
}

// dispatchRoomEvent 处理 "{roomId}/{suffix}" 形式的房间级事件。
// 事件的房间前缀必须与连接当前绑定的房间一致。
func (g *Gateway) dispatchRoomEvent(ctx context.Context, cc *ConnectionContext, env hub.Envelope) error {
	idx := strings.IndexByte(env.Event, '/')
	if idx <= 0 {
		logrus.WithField("event", env.Event).Debug("Ignoring unknown event")
		return nil
	}
	roomID, parseErr := strconv.ParseInt(env.Event[:idx], 10, 64)
	if parseErr != nil {
		logrus.WithField("event", env.Event).Debug("Ignoring unknown event")
		return nil
	}
	if !cc.inRoom() || cc.roomID != roomID {
		return service.ErrNotInRoom
	}

	switch env.Event[idx+1:] {
	case sufMessagesWrite:
		return g.onRoomMessageWrite(ctx, cc, env.Data)
	case sufTyping:
		g.onRoomTyping(cc)
		return nil
	case sufDraw:
		return g.onPoint(cc, env.Data)
	case sufDrawMouseup:
		return g.onStrokeEnd(ctx, cc, env.Data)
	case sufDrawChange:
		return g.onDrawingChange(ctx, cc, env.Data)
	case sufDrawReset:
		return g.onDrawingReset(ctx, cc, env.Data)
	case sufDrawReconnect:
		return g.onDrawReconnect(ctx, cc, env.Data)
	case sufCorrectionFetch:
		return g.onCorrectionFetch(ctx, cc, env.Data)
	case sufCorrectionAnswer:
		return g.onCorrectionAnswer(ctx, cc, env.Data)
	case sufSetAdmin:
		return g.onSetAdmin(ctx, cc, env.Data)
	default:
		logrus.WithField("event", env.Event).Debug("Ignoring unknown room event")
		return nil
	}
}
