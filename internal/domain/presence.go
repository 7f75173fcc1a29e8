package domain

import "strconv"

// PresenceSet 是某个范围（全局或单个房间）的在线投影：
// userId -> 显示名。它是从当前存活连接集实时推导的，从不增量维护，
// 每次 join/leave/disconnect 广播前都要重新计算。
type PresenceSet map[string]string

// Add 以字符串 key 记录一个在线用户（redis hash 的 field 是字符串）。
func (p PresenceSet) Add(userID uint, displayName string) {
	p[strconv.FormatUint(uint64(userID), 10)] = displayName
}

// Remove 删除一个用户的在线记录。
func (p PresenceSet) Remove(userID uint) {
	delete(p, strconv.FormatUint(uint64(userID), 10))
}
