package domain

import "time"

// Room 表示一个协作房间（聊天频道 + 共享画布）。
// RoomID 由服务端在创建时基于时间戳生成，保证唯一且不可变。
type Room struct {
	RoomID       int64     `gorm:"primaryKey;autoIncrement:false" json:"roomId"` // 时间戳派生的房间 ID (主键，不自增)
	Name         string    `gorm:"size:191;not null" json:"name"`                // 房间显示名称
	AdminID      uint      `gorm:"index;not null" json:"adminId"`                // 当前管理员的用户 ID
	IsPrivate    bool      `gorm:"not null" json:"isPrivate"`                    // 是否为私有房间（需要密码）
	PasswordHash string    `gorm:"type:text" json:"-"`                           // bcrypt 哈希后的房间密码，绝不序列化
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-"`
}

// WithoutPassword 返回一个去除密码哈希的副本。
// 房间目录在离开服务端边界之前必须经过此方法。
func (r Room) WithoutPassword() Room {
	r.PasswordHash = ""
	return r
}

// RoomDirectory 是对外广播的房间目录：roomId -> 房间信息（已脱敏）。
type RoomDirectory map[int64]Room
