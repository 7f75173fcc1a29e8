package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"collabboard/internal/service"
)

type createRoomPayload struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Password  string `json:"password"`
	DrawingID int64  `json:"drawingId"`
}

type joinRoomPayload struct {
	RoomID   int64  `json:"roomId"`
	Password string `json:"password"`
}

type setAdminPayload struct {
	AdminID uint `json:"adminId"`
}

// onRoomList 把当前房间目录发回给请求方。
func (g *Gateway) onRoomList(ctx context.Context, cc *ConnectionContext) error {
	directory, err := g.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	cc.client.SendEvent(evtRooms, directory)
	return nil
}

// onRoomCreate 创建房间，把创建结果确认给创建者，
// 并把更新后的房间目录广播给所有连接。
func (g *Gateway) onRoomCreate(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload createRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if payload.Name == "" {
		return fmt.Errorf("%w: room name is required", service.ErrInvalidPayload)
	}

	room, err := g.rooms.CreateRoom(ctx, payload.Name, cc.client.UserID(), payload.IsPrivate, payload.Password, payload.DrawingID)
	if err != nil {
		return err
	}

	directory, err := g.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	g.hub.EmitAll(evtRooms, directory, nil)
	cc.client.SendEvent("room/created", room)
	return nil
}

// onRoomJoin 把连接绑定到一个房间。
// 顺序很关键：先订阅房间作用域，再取快照，最后下发快照——
// 这样订阅与快照读取之间产生的实时事件不会丢失，
// 客户端按"快照 + 其后的事件流"重建一致状态。
func (g *Gateway) onRoomJoin(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if cc.inRoom() {
		// 隐式离开旧房间，保证一个连接同时只绑定一个房间
		g.leaveRoom(ctx, cc)
	}

	room, err := g.rooms.FindRoom(ctx, payload.RoomID)
	if err != nil {
		return err
	}
	if room.IsPrivate && room.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(payload.Password)) != nil {
			return service.ErrAuthenticationFailed
		}
	}

	sub := g.hub.Join(cc.client, roomScope(room.RoomID))

	messages, err := g.messages.GetRoomMessages(ctx, room.RoomID)
	if err != nil {
		sub.Release()
		return err
	}
	directory, err := g.rooms.ListRooms(ctx)
	if err != nil {
		sub.Release()
		return err
	}
	drawingID, err := g.drawing.ActiveDrawing(ctx, room.RoomID)
	if err != nil {
		sub.Release()
		return err
	}
	points, err := g.drawing.PointsForDrawing(ctx, drawingID)
	if err != nil {
		sub.Release()
		return err
	}

	cc.roomID = room.RoomID
	cc.drawingID = drawingID
	cc.roomSub = sub

	cc.client.SendEvent(evtRoomJoined, map[string]interface{}{
		"roomId":    room.RoomID,
		"messages":  messages,
		"rooms":     directory,
		"drawingId": drawingID,
		"points":    points,
	})

	scope := roomScope(room.RoomID)
	g.hub.EmitScope(scope, roomEvent(room.RoomID, sufPresence), g.hub.ScopePresence(scope), nil)

	logrus.WithFields(logrus.Fields{
		"conn_id": cc.client.ConnID(),
		"user_id": cc.client.UserID(),
		"room_id": room.RoomID,
	}).Info("Connection joined room")
	return nil
}

// onRoomLeave 处理显式的离房请求。
func (g *Gateway) onRoomLeave(ctx context.Context, cc *ConnectionContext) error {
	if !cc.inRoom() {
		return service.ErrNotInRoom
	}
	g.leaveRoom(ctx, cc)
	return nil
}

// leaveRoom 解除连接与房间的绑定并完成离房簿记：
// 未确认的笔画点先落库；最后一个成员离开时删除房间并广播目录；
// 管理员离开（房间仍有人）时广播通知，不做自动接任。
// 显式离房和断开连接都走这条路径。
func (g *Gateway) leaveRoom(ctx context.Context, cc *ConnectionContext) {
	roomID := cc.roomID
	scope := roomScope(roomID)
	logCtx := logrus.WithFields(logrus.Fields{
		"conn_id": cc.client.ConnID(),
		"user_id": cc.client.UserID(),
		"room_id": roomID,
	})

	// 缓冲里未走完 mouseup 流程的点不能丢
	if len(cc.pending) > 0 {
		if err := g.drawing.PersistStroke(ctx, cc.pending); err != nil {
			logCtx.WithError(err).Error("Failed to persist pending points on leave")
		}
	}

	cc.roomSub.Release()
	cc.resetRoomState()

	if g.hub.ScopeSize(scope) == 0 {
		if err := g.rooms.DeleteRoom(ctx, roomID); err != nil {
			logCtx.WithError(err).Error("Failed to delete empty room")
		} else if directory, err := g.rooms.ListRooms(ctx); err == nil {
			g.hub.EmitAll(evtRooms, directory, nil)
		}
		logCtx.Info("Connection left room (room now empty)")
		return
	}

	room, err := g.rooms.FindRoom(ctx, roomID)
	if err == nil && room.AdminID == cc.client.UserID() {
		g.hub.EmitScope(scope, roomEvent(roomID, sufAdminLeaving), map[string]interface{}{
			"userId":   cc.client.UserID(),
			"username": cc.client.Username(),
		}, nil)
	}

	g.hub.EmitScope(scope, roomEvent(roomID, sufPresence), g.hub.ScopePresence(scope), nil)
	logCtx.Info("Connection left room")
}

// onSetAdmin 持久化房间新管理员并把更新后的目录广播给房间成员。
func (g *Gateway) onSetAdmin(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload setAdminPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if err := g.rooms.SetAdmin(ctx, cc.roomID, payload.AdminID); err != nil {
		return err
	}
	directory, err := g.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	g.hub.EmitScope(roomScope(cc.roomID), evtRooms, directory, nil)
	return nil
}
