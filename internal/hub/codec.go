package hub

import (
	"encoding/json"
	"fmt"
)

// Envelope 是 WebSocket 上所有消息的统一外壳：
// 事件名加上事件各自定义的负载。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope 解析一条原始 WebSocket 消息。
// 事件名为空视为非法消息。
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event name")
	}
	return env, nil
}

// EncodeEvent 把事件名和负载编码成一条可直接下发的消息。
func EncodeEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
