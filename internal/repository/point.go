package repository

import (
	"context"

	"collabboard/internal/domain"
)

// DrawingPointRepository 定义了笔画点记录的存储和查询。
type DrawingPointRepository interface {
	// SaveBatch 批量保存一组点记录（一次笔画结束时整体写入）。
	SaveBatch(ctx context.Context, points []domain.DrawingPoint) error

	// FindByDrawing 返回某个画布的全部点，按 group、date 排序。
	FindByDrawing(ctx context.Context, drawingID int64) ([]domain.DrawingPoint, error)

	// FindGroup 返回精确匹配 (userID, drawingID, group) 的一组点，按 date 排序。
	FindGroup(ctx context.Context, userID uint, drawingID int64, group int64) ([]domain.DrawingPoint, error)

	// DeleteGroup 删除精确匹配 (userID, drawingID, group) 的一组点。
	// 用于失配恢复时先删后插，保证不残留旧记录。
	DeleteGroup(ctx context.Context, userID uint, drawingID int64, group int64) error

	// DeleteByDrawing 删除某个画布的全部点（画布重置）。
	DeleteByDrawing(ctx context.Context, drawingID int64) error
}
