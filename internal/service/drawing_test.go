package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collabboard/internal/domain"
	"collabboard/internal/repository"
	"collabboard/internal/repository/mocks"
	"collabboard/internal/service"
)

type stubQueue struct {
	enqueued [][]domain.DrawingPoint
	err      error
}

func (q *stubQueue) Enqueue(ctx context.Context, points []domain.DrawingPoint) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, points)
	return nil
}

func newDrawingService(pointRepo *mocks.DrawingPointRepository, stateRepo *mocks.StateRepository, queue service.StrokeQueue) *service.DrawingService {
	return service.NewDrawingService(pointRepo, stateRepo, queue)
}

func TestDrawingService_VerifyStroke_Match(t *testing.T) {
	svc := newDrawingService(new(mocks.DrawingPointRepository), new(mocks.StateRepository), nil)

	pending := []domain.DrawingPoint{{Date: 100}, {Date: 101}, {Date: 102}}
	token, match, err := svc.VerifyStroke("7|1001|42|100.101.102", pending)

	require.NoError(t, err)
	assert.True(t, match)
	assert.Equal(t, uint(7), token.UserID)
	assert.Equal(t, int64(42), token.Group)
}

func TestDrawingService_VerifyStroke_ReorderedBufferMismatch(t *testing.T) {
	svc := newDrawingService(new(mocks.DrawingPointRepository), new(mocks.StateRepository), nil)

	// 发送方报告 [t1,t2,t3]，服务端缓冲因网络乱序持有 [t1,t3,t2]
	pending := []domain.DrawingPoint{{Date: 100}, {Date: 102}, {Date: 101}}
	_, match, err := svc.VerifyStroke("7|1001|42|100.101.102", pending)

	require.NoError(t, err)
	assert.False(t, match)
}

func TestDrawingService_VerifyStroke_InvalidToken(t *testing.T) {
	svc := newDrawingService(new(mocks.DrawingPointRepository), new(mocks.StateRepository), nil)

	_, _, err := svc.VerifyStroke("not-a-token", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidPayload))
}

func TestDrawingService_PersistStroke_PrefersQueue(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	queue := &stubQueue{}
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), queue)

	points := []domain.DrawingPoint{{Date: 1}, {Date: 2}}
	err := svc.PersistStroke(context.Background(), points)

	require.NoError(t, err)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, points, queue.enqueued[0])
	// 入队成功时不应直接写库
	mockPointRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestDrawingService_PersistStroke_FallsBackToSyncWrite(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	queue := &stubQueue{err: errors.New("redis down")}
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), queue)

	points := []domain.DrawingPoint{{Date: 1}}
	mockPointRepo.On("SaveBatch", mock.Anything, points).Return(nil).Once()

	err := svc.PersistStroke(context.Background(), points)

	require.NoError(t, err)
	mockPointRepo.AssertExpectations(t)
}

func TestDrawingService_PersistStrokeSync_BypassesQueue(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	queue := &stubQueue{}
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), queue)

	points := []domain.DrawingPoint{{Date: 1}, {Date: 2}}
	mockPointRepo.On("SaveBatch", mock.Anything, points).Return(nil).Once()

	// 修正回合依赖这批点已经落库，队列即使可用也必须绕过
	err := svc.PersistStrokeSync(context.Background(), points)

	require.NoError(t, err)
	assert.Empty(t, queue.enqueued)
	mockPointRepo.AssertExpectations(t)
}

func TestDrawingService_PersistStroke_EmptyBufferIsNoop(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), nil)

	require.NoError(t, svc.PersistStroke(context.Background(), nil))
	mockPointRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestDrawingService_ReplaceStrokeGroup_DeleteThenInsert(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), nil)
	ctx := context.Background()

	correct := []domain.DrawingPoint{
		{ID: 11, UserID: 7, DrawingID: 1001, Group: 42, Date: 100},
		{ID: 12, UserID: 7, DrawingID: 1001, Group: 42, Date: 101},
	}

	// 必须先按精确键删除旧组，再整批插入，保证零重复行
	mockPointRepo.On("DeleteGroup", ctx, uint(7), int64(1001), int64(42)).Return(nil).Once()
	mockPointRepo.On("SaveBatch", ctx, mock.MatchedBy(func(points []domain.DrawingPoint) bool {
		if len(points) != 2 {
			return false
		}
		for _, p := range points {
			if p.ID != 0 { // 主键必须清零，由数据库重新分配
				return false
			}
		}
		return points[0].Date == 100 && points[1].Date == 101
	})).Return(nil).Once()

	err := svc.ReplaceStrokeGroup(ctx, correct)

	require.NoError(t, err)
	mockPointRepo.AssertExpectations(t)
}

func TestDrawingService_ReplaceStrokeGroup_DeleteFails(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), nil)
	ctx := context.Background()

	correct := []domain.DrawingPoint{{UserID: 7, DrawingID: 1, Group: 2, Date: 100}}
	mockPointRepo.On("DeleteGroup", ctx, uint(7), int64(1), int64(2)).
		Return(errors.New("db down")).Once()

	err := svc.ReplaceStrokeGroup(ctx, correct)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrStoreUnavailable))
	// 删除失败时绝不能插入，否则会产生重复行
	mockPointRepo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestDrawingService_ChangeDrawing(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	mockStateRepo := new(mocks.StateRepository)
	svc := newDrawingService(mockPointRepo, mockStateRepo, nil)
	ctx := context.Background()

	existing := []domain.DrawingPoint{{DrawingID: 2002, Date: 1}}
	mockPointRepo.On("FindByDrawing", ctx, int64(2002)).Return(existing, nil).Once()
	mockStateRepo.On("SetActiveDrawing", ctx, int64(555), int64(2002)).Return(nil).Once()

	points, err := svc.ChangeDrawing(ctx, 555, 2002)

	require.NoError(t, err)
	assert.Equal(t, existing, points)
	mockPointRepo.AssertExpectations(t)
	mockStateRepo.AssertExpectations(t)
}

func TestDrawingService_ActiveDrawing_UnsetReturnsZero(t *testing.T) {
	mockStateRepo := new(mocks.StateRepository)
	svc := newDrawingService(new(mocks.DrawingPointRepository), mockStateRepo, nil)
	ctx := context.Background()

	mockStateRepo.On("ActiveDrawing", ctx, int64(555)).
		Return(int64(0), repository.ErrNotFound).Once()

	drawingID, err := svc.ActiveDrawing(ctx, 555)

	require.NoError(t, err)
	assert.Equal(t, int64(0), drawingID)
}

func TestDrawingService_ResetDrawing(t *testing.T) {
	mockPointRepo := new(mocks.DrawingPointRepository)
	svc := newDrawingService(mockPointRepo, new(mocks.StateRepository), nil)
	ctx := context.Background()

	mockPointRepo.On("DeleteByDrawing", ctx, int64(2002)).Return(nil).Once()

	require.NoError(t, svc.ResetDrawing(ctx, 2002))
	mockPointRepo.AssertExpectations(t)
}
