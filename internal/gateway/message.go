package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"collabboard/internal/domain"
	"collabboard/internal/service"
)

type messageWritePayload struct {
	Message string `json:"message"`
}

type inboxMessagePayload struct {
	ReceiverID uint  `json:"receiverId"`
	RoomID     int64 `json:"roomId"`
}

// onGeneralMessages 把全局频道的完整历史发回给请求方。
func (g *Gateway) onGeneralMessages(ctx context.Context, cc *ConnectionContext) error {
	msgs, err := g.messages.GetGeneralMessages(ctx)
	if err != nil {
		return err
	}
	cc.client.SendEvent(evtGeneralMessages, msgs)
	return nil
}

// onGeneralMessageWrite 持久化一条全局消息，
// 并把刷新后的完整频道历史广播给所有连接。
func (g *Gateway) onGeneralMessageWrite(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload messageWritePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if payload.Message == "" {
		return fmt.Errorf("%w: message text is required", service.ErrInvalidPayload)
	}

	msgs, err := g.messages.SendGeneralMessage(ctx, cc.client.UserID(), cc.client.Username(), payload.Message)
	if err != nil {
		return err
	}
	g.hub.EmitAll(evtGeneralMessages, msgs, nil)
	return nil
}

// onRoomMessageWrite 持久化一条房间消息，
// 并把刷新后的完整频道历史广播给房间成员。
func (g *Gateway) onRoomMessageWrite(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload messageWritePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if payload.Message == "" {
		return fmt.Errorf("%w: message text is required", service.ErrInvalidPayload)
	}

	msgs, err := g.messages.SendRoomMessage(ctx, cc.roomID, cc.client.UserID(), cc.client.Username(), payload.Message)
	if err != nil {
		return err
	}
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufMessages), msgs, nil)
	return nil
}

// onGeneralTyping 是无状态中继：把"某人正在输入"转发给
// 全局频道的其他人，不碰任何存储。
func (g *Gateway) onGeneralTyping(cc *ConnectionContext) {
	g.hub.EmitAll(evtGeneralTyping, map[string]interface{}{
		"userId":   cc.client.UserID(),
		"username": cc.client.Username(),
	}, cc.client)
}

// onRoomTyping 把输入信号转发给房间频道的其他人。
func (g *Gateway) onRoomTyping(cc *ConnectionContext) {
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufTyping), map[string]interface{}{
		"userId":   cc.client.UserID(),
		"username": cc.client.Username(),
	}, cc.client)
}

// onInboxMessage 持久化一条邀请并把接收者的完整收件箱
// （最新在前）投递到其私人作用域——按用户、不按房间。
func (g *Gateway) onInboxMessage(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload inboxMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if payload.ReceiverID == 0 {
		return fmt.Errorf("%w: receiver id is required", service.ErrInvalidPayload)
	}

	inbox, err := g.messages.SaveInvitation(ctx, domain.Invitation{
		RoomID:     payload.RoomID,
		SenderID:   cc.client.UserID(),
		SenderName: cc.client.Username(),
		ReceiverID: payload.ReceiverID,
	})
	if err != nil {
		return err
	}
	g.hub.EmitScope(inboxScope(payload.ReceiverID), evtInbox, inbox, nil)
	return nil
}
