package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
)

// StrokeQueue 把一次笔画的批量持久化交给后台任务队列。
// 由 tasks 包基于 asynq 实现；网关侧只关心入队是否成功。
type StrokeQueue interface {
	Enqueue(ctx context.Context, points []domain.DrawingPoint) error
}

// DrawingService 实现笔画流的同步协议：广播点、校验完整性令牌、
// 失配时用发送方提供的权威数据整组替换。
//
// 每个连接的待确认点缓冲（pendingPoints）由连接上下文持有并传入，
// 服务本身不保存任何跨事件状态。
type DrawingService struct {
	pointRepo repository.DrawingPointRepository
	stateRepo repository.StateRepository
	queue     StrokeQueue // 可为 nil，此时直接同步写库
}

// NewDrawingService 创建 DrawingService 实例。
func NewDrawingService(pointRepo repository.DrawingPointRepository, stateRepo repository.StateRepository, queue StrokeQueue) *DrawingService {
	if pointRepo == nil || stateRepo == nil {
		panic("all repositories must be non-nil for DrawingService")
	}
	return &DrawingService{
		pointRepo: pointRepo,
		stateRepo: stateRepo,
		queue:     queue,
	}
}

// VerifyStroke 解析完整性令牌并与服务端缓冲的点序列比对。
// 返回解析后的令牌和比对结果；令牌格式非法时返回 ErrInvalidPayload。
// 比对只看数量和每个下标处的序列号，与点的坐标内容无关。
func (s *DrawingService) VerifyStroke(raw string, pending []domain.DrawingPoint) (domain.StrokeToken, bool, error) {
	token, err := domain.ParseStrokeToken(raw)
	if err != nil {
		logrus.WithError(err).Warn("Failed to parse stroke integrity token")
		return domain.StrokeToken{}, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return token, token.MatchesPoints(pending), nil
}

// PersistStroke 批量持久化一次笔画的点。
// 优先交给后台队列；队列不可用或入队失败时退回同步写库，
// 保证服务端的整批记录总是反映实际收到的数据。
func (s *DrawingService) PersistStroke(ctx context.Context, points []domain.DrawingPoint) error {
	if len(points) == 0 {
		return nil
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, points); err == nil {
			return nil
		} else {
			logrus.WithError(err).Warn("Stroke queue unavailable, persisting synchronously")
		}
	}
	return s.saveBatch(ctx, points)
}

// PersistStrokeSync 绕过后台队列直接写库。
// 当后续操作依赖这批点已经落库时必须走这条路径：
// 失配笔画的删除-重插修正、重连后立即读取的全量快照——
// 队列里迟到的旧批次会在修正之后才写回，产生重复行。
func (s *DrawingService) PersistStrokeSync(ctx context.Context, points []domain.DrawingPoint) error {
	if len(points) == 0 {
		return nil
	}
	return s.saveBatch(ctx, points)
}

func (s *DrawingService) saveBatch(ctx context.Context, points []domain.DrawingPoint) error {
	if err := s.pointRepo.SaveBatch(ctx, points); err != nil {
		logrus.WithError(err).WithField("point_count", len(points)).Error("Failed to persist stroke")
		return ErrStoreUnavailable
	}
	return nil
}

// ReplaceStrokeGroup 用发送方提供的权威点集整组替换已持久化的数据。
// 先按 (userId, drawingId, group) 精确删除旧记录再批量插入，
// 确保修正后不残留任何重复行。
func (s *DrawingService) ReplaceStrokeGroup(ctx context.Context, correct []domain.DrawingPoint) error {
	if len(correct) == 0 {
		return nil
	}
	first := correct[0]
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":    first.UserID,
		"drawing_id": first.DrawingID,
		"group":      first.Group,
		"count":      len(correct),
	})

	if err := s.pointRepo.DeleteGroup(ctx, first.UserID, first.DrawingID, first.Group); err != nil {
		logCtx.WithError(err).Error("Failed to delete stale stroke group")
		return ErrStoreUnavailable
	}
	// 主键由数据库重新分配，避免与已删除的行冲突
	for i := range correct {
		correct[i].ID = 0
	}
	if err := s.pointRepo.SaveBatch(ctx, correct); err != nil {
		logCtx.WithError(err).Error("Failed to insert corrected stroke group")
		return ErrStoreUnavailable
	}
	logCtx.Info("Stroke group replaced with authoritative copy")
	return nil
}

// LoadGroup 按 (userId, drawingId, group) 读取一组已持久化的点。
func (s *DrawingService) LoadGroup(ctx context.Context, userID uint, drawingID int64, group int64) ([]domain.DrawingPoint, error) {
	points, err := s.pointRepo.FindGroup(ctx, userID, drawingID, group)
	if err != nil {
		logrus.WithError(err).Error("Failed to load stroke group")
		return nil, ErrStoreUnavailable
	}
	return points, nil
}

// PointsForDrawing 返回某个画布的全部已持久化点。
func (s *DrawingService) PointsForDrawing(ctx context.Context, drawingID int64) ([]domain.DrawingPoint, error) {
	points, err := s.pointRepo.FindByDrawing(ctx, drawingID)
	if err != nil {
		logrus.WithError(err).WithField("drawing_id", drawingID).Error("Failed to load drawing points")
		return nil, ErrStoreUnavailable
	}
	return points, nil
}

// ChangeDrawing 把房间切换到另一块画布：
// 读取新画布的全部点并把新画布记录为房间的活跃画布。
func (s *DrawingService) ChangeDrawing(ctx context.Context, roomID int64, drawingID int64) ([]domain.DrawingPoint, error) {
	points, err := s.PointsForDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	if err := s.stateRepo.SetActiveDrawing(ctx, roomID, drawingID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"room_id": roomID, "drawing_id": drawingID}).
			Error("Failed to record active drawing")
		return nil, ErrStoreUnavailable
	}
	return points, nil
}

// ActiveDrawing 返回房间当前活跃的画布 ID；未设置时返回 0。
func (s *DrawingService) ActiveDrawing(ctx context.Context, roomID int64) (int64, error) {
	drawingID, err := s.stateRepo.ActiveDrawing(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to read active drawing")
		return 0, ErrStoreUnavailable
	}
	return drawingID, nil
}

// ResetDrawing 删除某个画布的全部已持久化点（画布清空）。
func (s *DrawingService) ResetDrawing(ctx context.Context, drawingID int64) error {
	if err := s.pointRepo.DeleteByDrawing(ctx, drawingID); err != nil {
		logrus.WithError(err).WithField("drawing_id", drawingID).Error("Failed to reset drawing")
		return ErrStoreUnavailable
	}
	logrus.WithField("drawing_id", drawingID).Info("Drawing reset, all points deleted")
	return nil
}
