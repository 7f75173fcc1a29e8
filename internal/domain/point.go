package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DrawingPoint 表示画布上一次落笔事件产生的单个点。
// Date 是客户端分配的单调递增序列号，作为组内排序键；
// Group 划分一次"落笔到抬笔"的连续笔画。
type DrawingPoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_point_group,priority:1;not null" json:"userId"`
	DrawingID int64     `gorm:"index:idx_point_group,priority:2;index;not null" json:"drawingId"`
	Group     int64     `gorm:"index:idx_point_group,priority:3;not null" json:"group"` // 笔画分组 ID (不透明整数)
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Fill      string    `gorm:"size:50" json:"fill"`   // 颜色，例如 "#FF0000"
	Weight    int       `json:"weight"`                // 画笔粗细
	Date      int64     `gorm:"not null" json:"date"`  // 客户端序列号（组内排序键）
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

// StrokeToken 是笔画结束时发送方上报的完整性令牌，
// 紧凑编码为 "userId|drawingId|group|t1.t2.t3" 的分隔字符串。
// 它只描述笔画的索引骨架（点数量与序列号顺序），不包含坐标或颜色。
type StrokeToken struct {
	UserID    uint
	DrawingID int64
	Group     int64
	Dates     []int64 // 发送方认为已送达的点序列号，按发送顺序
}

// ParseStrokeToken 解析完整性令牌字符串。
// 序列号必须按整数解析比较，不能按字典序。
func ParseStrokeToken(raw string) (StrokeToken, error) {
	var token StrokeToken

	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return token, fmt.Errorf("stroke token: expected 4 segments, got %d", len(parts))
	}

	userID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return token, fmt.Errorf("stroke token: invalid user id %q: %w", parts[0], err)
	}
	drawingID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return token, fmt.Errorf("stroke token: invalid drawing id %q: %w", parts[1], err)
	}
	group, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return token, fmt.Errorf("stroke token: invalid group %q: %w", parts[2], err)
	}

	token.UserID = uint(userID)
	token.DrawingID = drawingID
	token.Group = group

	if parts[3] == "" {
		return token, nil
	}
	for _, ts := range strings.Split(parts[3], ".") {
		date, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return token, fmt.Errorf("stroke token: invalid timestamp %q: %w", ts, err)
		}
		token.Dates = append(token.Dates, date)
	}
	return token, nil
}

// MatchesPoints 执行完整性检查：服务端缓冲的点与令牌声明的序列
// 数量一致且每个下标处的序列号两两相等时才算匹配。
// 这里只校验索引骨架，不比较 x/y/fill 等像素内容。
func (t StrokeToken) MatchesPoints(points []DrawingPoint) bool {
	if len(points) == 0 || len(points) != len(t.Dates) {
		return false
	}
	for i, date := range t.Dates {
		if points[i].Date != date {
			return false
		}
	}
	return true
}

// String 重新编码为线格式，与 ParseStrokeToken 互逆。
func (t StrokeToken) String() string {
	dates := make([]string, len(t.Dates))
	for i, d := range t.Dates {
		dates[i] = strconv.FormatInt(d, 10)
	}
	return fmt.Sprintf("%d|%d|%d|%s", t.UserID, t.DrawingID, t.Group, strings.Join(dates, "."))
}
