package domain

import "time"

// Message 表示一条聊天消息，只追加、从不修改。
// RoomID 为 nil 且 IsGeneral 为 true 时属于全局频道，
// 否则属于 RoomID 指定的房间频道——一条消息绝不会同时属于两者。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	Author    string    `gorm:"size:191;not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"message"`
	RoomID    *int64    `gorm:"index" json:"roomId,omitempty"`
	IsGeneral bool      `gorm:"index;not null" json:"isGeneral"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Invitation 表示一条定向的房间邀请/收件箱通知，只追加，
// 仅通过接收者维度的查询读取。
type Invitation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomID     int64     `gorm:"not null" json:"roomId"`
	SenderID   uint      `gorm:"not null" json:"senderId"`
	SenderName string    `gorm:"size:191;not null" json:"senderName"`
	ReceiverID uint      `gorm:"index;not null" json:"receiverId"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
