package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"collabboard/internal/domain"
)

// GormDrawingPointRepository 是 DrawingPointRepository 接口的 GORM 实现
type GormDrawingPointRepository struct {
	db *gorm.DB
}

// NewGormDrawingPointRepository 创建 GormDrawingPointRepository 实例
func NewGormDrawingPointRepository(db *gorm.DB) *GormDrawingPointRepository {
	if db == nil {
		panic("database connection cannot be nil for GormDrawingPointRepository")
	}
	return &GormDrawingPointRepository{db: db}
}

// SaveBatch 实现批量保存点记录。
// GORM 的 Create 方法支持传入切片进行批量插入。
func (r *GormDrawingPointRepository) SaveBatch(ctx context.Context, points []domain.DrawingPoint) error {
	if len(points) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&points).Error
	if err != nil {
		return fmt.Errorf("gorm: save point batch (size %d): %w", len(points), err)
	}
	return nil
}

// FindByDrawing 实现查询某个画布的全部点
func (r *GormDrawingPointRepository) FindByDrawing(ctx context.Context, drawingID int64) ([]domain.DrawingPoint, error) {
	var points []domain.DrawingPoint
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Order("`group` asc, date asc").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find points for drawing %d: %w", drawingID, err)
	}
	return points, nil
}

// FindGroup 实现查询一组笔画点
func (r *GormDrawingPointRepository) FindGroup(ctx context.Context, userID uint, drawingID int64, group int64) ([]domain.DrawingPoint, error) {
	var points []domain.DrawingPoint
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND drawing_id = ? AND `group` = ?", userID, drawingID, group).
		Order("date asc").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find group %d/%d/%d: %w", userID, drawingID, group, err)
	}
	return points, nil
}

// DeleteGroup 实现删除一组笔画点
func (r *GormDrawingPointRepository) DeleteGroup(ctx context.Context, userID uint, drawingID int64, group int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND drawing_id = ? AND `group` = ?", userID, drawingID, group).
		Delete(&domain.DrawingPoint{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete group %d/%d/%d: %w", userID, drawingID, group, err)
	}
	return nil
}

// DeleteByDrawing 实现删除某个画布的全部点
func (r *GormDrawingPointRepository) DeleteByDrawing(ctx context.Context, drawingID int64) error {
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Delete(&domain.DrawingPoint{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete points for drawing %d: %w", drawingID, err)
	}
	return nil
}
