package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/service"
)

type strokeEndPayload struct {
	Token string `json:"token"`
}

type drawingChangePayload struct {
	DrawingID int64 `json:"drawingId"`
}

// onPoint 是乐观低延迟路径：点进缓冲，立即转发给房间内其他人。
// 不等待任何确认——正因为转发顺序和落库顺序都只是尽力而为，
// 才需要 mouseup 时的完整性比对。
func (g *Gateway) onPoint(cc *ConnectionContext, data json.RawMessage) error {
	var point domain.DrawingPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	point.UserID = cc.client.UserID()
	if point.DrawingID == 0 {
		point.DrawingID = cc.drawingID
	}

	cc.pending = append(cc.pending, point)
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufDraw), point, cc.client)
	return nil
}

// onStrokeEnd 是笔画完整性协议的核心。
// 发送方在 mouseup 时给出它认为已送达的点序列（完整性令牌），
// 服务端与自己缓冲的序列比对：
//   - 一致：把令牌原样转发给其他人做端侧交叉校验；
//   - 不一致：记录分歧并向发送方请求整组权威数据（一次性）。
//
// 不论结果如何，缓冲的点都批量落库并清空——服务端的记录
// 始终反映实际收到的数据，修正回合完成前也是如此。
func (g *Gateway) onStrokeEnd(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload strokeEndPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}

	token, match, err := g.drawing.VerifyStroke(payload.Token, cc.pending)
	if err != nil {
		return err
	}

	scope := roomScope(cc.roomID)
	if match {
		g.hub.EmitScope(scope, roomEvent(cc.roomID, sufDrawCheck), payload.Token, cc.client)
		if err := g.drawing.PersistStroke(ctx, cc.pending); err != nil {
			logrus.WithError(err).Warn("Failed to persist stroke buffer at stroke end")
		}
	} else {
		logrus.WithFields(logrus.Fields{
			"user_id":       token.UserID,
			"drawing_id":    token.DrawingID,
			"group":         token.Group,
			"token_count":   len(token.Dates),
			"pending_count": len(cc.pending),
		}).Warn("Stroke integrity mismatch, requesting authoritative resend")
		cc.awaitingCorrection = true
		cc.client.SendEvent(roomEvent(cc.roomID, sufDrawResend), map[string]interface{}{
			"userId":    token.UserID,
			"drawingId": token.DrawingID,
			"group":     token.Group,
		})
		// 失配批次不能进队列：修正回复会按精确键删除旧组再重插，
		// 旧批次必须在那之前就已落库，否则后台任务会在替换之后
		// 把失配数据写回去，留下重复行。
		if err := g.drawing.PersistStrokeSync(ctx, cc.pending); err != nil {
			logrus.WithError(err).Warn("Failed to persist mismatched stroke buffer")
		}
	}
	cc.pending = nil

	g.hub.EmitScope(scope, roomEvent(cc.roomID, sufDrawMouseup), map[string]interface{}{
		"userId": cc.client.UserID(),
	}, cc.client)
	return nil
}

// onCorrectionAnswer 处理发送方对 resend 请求的一次性回复：
// 删除该 (userId, drawingId, group) 之前落库的点，整组换成
// 权威数据，再广播给房间里的其他人，让所有副本收敛。
func (g *Gateway) onCorrectionAnswer(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	if !cc.awaitingCorrection {
		logrus.WithFields(logrus.Fields{
			"conn_id": cc.client.ConnID(),
			"user_id": cc.client.UserID(),
		}).Warn("Unsolicited correction answer, ignoring")
		return nil
	}
	cc.awaitingCorrection = false

	var correct []domain.DrawingPoint
	if err := json.Unmarshal(data, &correct); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	if len(correct) == 0 {
		return nil
	}
	for i := range correct {
		correct[i].UserID = cc.client.UserID()
	}

	if err := g.drawing.ReplaceStrokeGroup(ctx, correct); err != nil {
		return err
	}
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufCorrection), correct, cc.client)
	return nil
}

// onCorrectionFetch 处理端侧交叉校验失败的对端：
// 它拿着令牌来要这一组的落库副本。只有当落库点数与令牌
// 声明的点数一致（即服务端持有完整数据）时才发。
func (g *Gateway) onCorrectionFetch(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload strokeEndPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	token, err := domain.ParseStrokeToken(payload.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}

	points, err := g.drawing.LoadGroup(ctx, token.UserID, token.DrawingID, token.Group)
	if err != nil {
		return err
	}
	if len(points) != len(token.Dates) {
		logrus.WithFields(logrus.Fields{
			"group":        token.Group,
			"stored_count": len(points),
			"token_count":  len(token.Dates),
		}).Warn("Stored stroke group incomplete, not serving correction")
		return nil
	}
	cc.client.SendEvent(roomEvent(cc.roomID, sufCorrection), points)
	return nil
}

// onDrawingChange 把房间切到另一块画布：记录新的活跃画布，
// 通知其他人画布变了，然后把新画布的全量点快照发给房间里的
// 每个人，保证所有客户端同步换布。
func (g *Gateway) onDrawingChange(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload drawingChangePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}

	points, err := g.drawing.ChangeDrawing(ctx, cc.roomID, payload.DrawingID)
	if err != nil {
		return err
	}
	cc.drawingID = payload.DrawingID

	scope := roomScope(cc.roomID)
	g.hub.EmitScope(scope, roomEvent(cc.roomID, sufDrawChange), map[string]interface{}{
		"drawingId": payload.DrawingID,
	}, cc.client)
	g.hub.EmitScope(scope, roomEvent(cc.roomID, sufDrawPoints), points, nil)
	return nil
}

// onDrawingReset 清空画布：先广播清除信号，再删除落库的点。
func (g *Gateway) onDrawingReset(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var payload drawingChangePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	drawingID := payload.DrawingID
	if drawingID == 0 {
		drawingID = cc.drawingID
	}

	// 清除信号发给整个房间，发送方也要收到
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufDrawReset), map[string]interface{}{
		"drawingId": drawingID,
	}, nil)
	return g.drawing.ResetDrawing(ctx, drawingID)
}

// onDrawReconnect 处理断线重连客户端上传的离线点：
// 批量落库后把当前画布的全量快照广播给整个房间。
func (g *Gateway) onDrawReconnect(ctx context.Context, cc *ConnectionContext, data json.RawMessage) error {
	var offline []domain.DrawingPoint
	if err := json.Unmarshal(data, &offline); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	for i := range offline {
		offline[i].UserID = cc.client.UserID()
	}
	// 紧接着就要读全量快照广播给房间，离线点必须先同步落库，
	// 否则快照里缺少重连者的笔画
	if err := g.drawing.PersistStrokeSync(ctx, offline); err != nil {
		return err
	}

	points, err := g.drawing.PointsForDrawing(ctx, cc.drawingID)
	if err != nil {
		return err
	}
	g.hub.EmitScope(roomScope(cc.roomID), roomEvent(cc.roomID, sufDrawPoints), points, nil)
	return nil
}
