package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler 记录生命周期回调，用于白盒测试。
type recordingHandler struct {
	connects    []*Client
	disconnects []*Client
	events      []Envelope
}

func (h *recordingHandler) HandleConnect(c *Client)           { h.connects = append(h.connects, c) }
func (h *recordingHandler) HandleDisconnect(c *Client)        { h.disconnects = append(h.disconnects, c) }
func (h *recordingHandler) HandleEvent(c *Client, e Envelope) { h.events = append(h.events, e) }

func newTestClient(h *Hub, connID string, userID uint, username string) *Client {
	return &Client{
		hub:      h,
		connID:   connID,
		userID:   userID,
		username: username,
		send:     make(chan []byte, 16),
	}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_BroadcastScope_ExcludesSender(t *testing.T) {
	h := NewHub()
	h.SetHandler(&recordingHandler{})

	alice := newTestClient(h, "c1", 1, "alice")
	bob := newTestClient(h, "c2", 2, "bob")
	carol := newTestClient(h, "c3", 3, "carol")
	h.registerClient(alice)
	h.registerClient(bob)
	h.registerClient(carol)

	h.Join(alice, "room/100")
	h.Join(bob, "room/100")
	// carol 不在该作用域

	h.BroadcastScope("room/100", []byte("ping"), alice)

	assert.Empty(t, drain(alice), "发送者不应收到自己的广播")
	assert.Len(t, drain(bob), 1)
	assert.Empty(t, drain(carol), "作用域外的连接不应收到广播")
}

func TestHub_BroadcastAll(t *testing.T) {
	h := NewHub()
	h.SetHandler(&recordingHandler{})

	alice := newTestClient(h, "c1", 1, "alice")
	bob := newTestClient(h, "c2", 2, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	h.BroadcastAll([]byte("hello"), nil)

	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(bob), 1)
}

func TestHub_SubscriptionRelease_Idempotent(t *testing.T) {
	h := NewHub()
	h.SetHandler(&recordingHandler{})

	alice := newTestClient(h, "c1", 1, "alice")
	h.registerClient(alice)
	sub := h.Join(alice, "room/100")

	assert.Equal(t, 1, h.ScopeSize("room/100"))
	sub.Release()
	assert.Equal(t, 0, h.ScopeSize("room/100"))
	// 重复释放不应 panic 或影响其他订阅者
	sub.Release()
	assert.Equal(t, 0, h.ScopeSize("room/100"))
}

func TestHub_Unregister_RemovesFromAllScopes(t *testing.T) {
	h := NewHub()
	handler := &recordingHandler{}
	h.SetHandler(handler)

	alice := newTestClient(h, "c1", 1, "alice")
	bob := newTestClient(h, "c2", 2, "bob")
	h.registerClient(alice)
	h.registerClient(bob)
	h.Join(alice, "room/100")
	h.Join(alice, "inbox/1")
	h.Join(bob, "room/100")

	h.unregisterClient(alice)

	assert.Equal(t, 1, h.ScopeSize("room/100"))
	assert.Equal(t, 0, h.ScopeSize("inbox/1"))
	require.Len(t, handler.disconnects, 1)
	// 处理器回调时连接已从注册表消失
	assert.NotContains(t, h.GlobalPresence(), "1")

	// 重复注销是安全的
	h.unregisterClient(alice)
	assert.Len(t, handler.disconnects, 1)
}

func TestHub_GlobalPresence_MergesConnectionsPerUser(t *testing.T) {
	h := NewHub()
	h.SetHandler(&recordingHandler{})

	// 同一用户开两个标签页
	h.registerClient(newTestClient(h, "c1", 1, "alice"))
	h.registerClient(newTestClient(h, "c2", 1, "alice"))
	h.registerClient(newTestClient(h, "c3", 2, "bob"))

	online := h.GlobalPresence()

	assert.Len(t, online, 2)
	assert.Equal(t, "alice", online["1"])
	assert.Equal(t, "bob", online["2"])
}

func TestHub_DispatchEvent_MalformedMessage(t *testing.T) {
	h := NewHub()
	handler := &recordingHandler{}
	h.SetHandler(handler)

	alice := newTestClient(h, "c1", 1, "alice")
	h.registerClient(alice)
	drain(alice)

	h.dispatchEvent(alice, []byte("{not json"))

	assert.Empty(t, handler.events, "非法消息不应到达业务处理器")
	sent := drain(alice)
	require.Len(t, sent, 1, "发送方应收到 error 事件")
	var env Envelope
	require.NoError(t, json.Unmarshal(sent[0], &env))
	assert.Equal(t, "error", env.Event)
}

func TestHub_DispatchEvent_ValidEnvelope(t *testing.T) {
	h := NewHub()
	handler := &recordingHandler{}
	h.SetHandler(handler)

	alice := newTestClient(h, "c1", 1, "alice")
	h.registerClient(alice)

	h.dispatchEvent(alice, []byte(`{"event":"room/join","data":{"roomId":100}}`))

	require.Len(t, handler.events, 1)
	assert.Equal(t, "room/join", handler.events[0].Event)
	assert.JSONEq(t, `{"roomId":100}`, string(handler.events[0].Data))
}

func TestEncodeEvent_RoundTrip(t *testing.T) {
	raw, err := EncodeEvent("presence", map[string]string{"1": "alice"})
	require.NoError(t, err)

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "presence", env.Event)
	assert.JSONEq(t, `{"1":"alice"}`, string(env.Data))
}

func TestDecodeEnvelope_MissingEventName(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)
}
