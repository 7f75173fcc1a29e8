package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 作用域名由房间 ID（时间派生整数）或用户 ID 拼接固定前缀构成，
// 这里显式断言不同来源的名字不可能互相冲突。
func TestScopeNames_CollisionFree(t *testing.T) {
	roomIDs := []int64{1, 100, 1714000000000}
	userIDs := []uint{1, 100, 1714}

	seen := make(map[string]string)
	for _, roomID := range roomIDs {
		name := roomScope(roomID)
		assert.NotContains(t, seen, name)
		seen[name] = "room"
	}
	for _, userID := range userIDs {
		name := inboxScope(userID)
		// 即使数值相同，收件箱作用域与房间作用域也不能重名
		assert.NotContains(t, seen, name)
		seen[name] = "inbox"
	}
}

func TestRoomEvent_PrefixedByRoomID(t *testing.T) {
	assert.Equal(t, "1714000000000/draw", roomEvent(1714000000000, sufDraw))
	assert.Equal(t, "100/draw/mouseup", roomEvent(100, sufDrawMouseup))

	// 不同房间的同名后缀必须产生不同的事件名
	assert.NotEqual(t, roomEvent(100, sufDraw), roomEvent(101, sufDraw))
}

func TestRoomEvent_DistinctFromGlobalEvents(t *testing.T) {
	globals := []string{
		evtGeneralMessages, evtGeneralMessagesWrite, evtGeneralTyping,
		evtInboxMessage, evtRoomList, evtRoomCreate, evtRoomJoin, evtRoomLeave,
	}
	suffixes := []string{
		sufMessagesWrite, sufTyping, sufDraw, sufDrawMouseup, sufDrawChange,
		sufDrawReset, sufDrawReconnect, sufCorrectionFetch, sufCorrectionAnswer, sufSetAdmin,
	}
	for _, g := range globals {
		for _, s := range suffixes {
			// 房间 ID 是十进制整数，全局事件名以字母开头，前缀永不相同
			assert.NotEqual(t, g, roomEvent(100, s))
		}
	}
}
