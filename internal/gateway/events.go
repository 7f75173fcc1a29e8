// Package gateway 是会话网关：把 WebSocket 连接接到各业务服务上，
// 负责连接/断开的簿记、按房间的事件绑定与解绑、以及事件分发。
package gateway

import "strconv"

// 全局事件名（入站）。
const (
	evtGeneralMessages      = "general/messages"
	evtGeneralMessagesWrite = "general/messages/write"
	evtGeneralTyping        = "general/typing"
	evtInboxMessage         = "inbox/message"
	evtRoomList             = "room/list"
	evtRoomCreate           = "room/create"
	evtRoomJoin             = "room/join"
	evtRoomLeave            = "room/leave"
)

// 房间事件后缀（入站，完整事件名为 "{roomId}/{suffix}"）。
const (
	sufMessagesWrite    = "messages/write"
	sufTyping           = "typing"
	sufDraw             = "draw"
	sufDrawMouseup      = "draw/mouseup"
	sufDrawChange       = "draw/change"
	sufDrawReset        = "draw/reset"
	sufDrawReconnect    = "draw/reconnect"
	sufCorrectionFetch  = "correction/fetch"
	sufCorrectionAnswer = "correction/answer"
	sufSetAdmin         = "setadmin"
)

// 出站事件名（全局）。
const (
	evtBootstrap  = "bootstrap"
	evtPresence   = "presence"
	evtRooms      = "rooms"
	evtInbox      = "inbox"
	evtRoomJoined = "room/joined"
	evtError      = "error"
)

// 出站事件后缀（房间级）。
const (
	sufPresence     = "presence"
	sufMessages     = "messages"
	sufDrawCheck    = "draw/check"
	sufDrawResend   = "draw/resend"
	sufCorrection   = "draw/correction"
	sufDrawPoints   = "draw/points"
	sufAdminLeaving = "adminleaving"
)

// roomEvent 构造房间级事件名。房间 ID 是时间派生的十进制整数，
// 斜杠分隔符保证事件名不会与任何全局事件或其他房间的事件冲突。
func roomEvent(roomID int64, suffix string) string {
	return strconv.FormatInt(roomID, 10) + "/" + suffix
}

// roomScope 构造房间的广播作用域名。
func roomScope(roomID int64) string {
	return "room/" + strconv.FormatInt(roomID, 10)
}

// inboxScope 构造用户私人收件箱的广播作用域名。
// 前缀不同，收件箱作用域与房间作用域之间不可能冲突。
func inboxScope(userID uint) string {
	return "inbox/" + strconv.FormatUint(uint64(userID), 10)
}
