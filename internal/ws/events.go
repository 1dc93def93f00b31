package ws

import (
	"encoding/json"
	"errors"
)

// 实时通道上的入站事件名。
const (
	evtAuthenticate = "authenticate"
	evtJoinRoom     = "joinRoom"
	evtLeaveRoom    = "leaveRoom"
	evtStartListen  = "startListen"
	evtStopListen   = "stopListen"
	evtChatMessage  = "chatMessage"

	evtMessage = "message"
	evtError   = "error"
)

// Envelope 是双向事件的统一外层：{"event": ..., "data": ...}。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomEvent 是 joinRoom/leaveRoom 的载荷。
type RoomEvent struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
	Language string `json:"language"`
}

// ChatEvent 是 chatMessage 的载荷。
type ChatEvent struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
	Username string `json:"username"`
	Language string `json:"language"`
}

var errBadPayload = errors.New("malformed event payload")

// decodeRoomEvent 兼容三种历史载荷形态：
// 结构化对象、位置参数数组 [roomName, username, language]、裸字符串房间名。
// 老客户端的 leaveRoom 用的是位置参数，这里统一归一化。
func decodeRoomEvent(data []byte) (RoomEvent, error) {
	var evt RoomEvent
	if err := json.Unmarshal(data, &evt); err == nil && evt.RoomName != "" {
		return evt, nil
	}
	var args []string
	if err := json.Unmarshal(data, &args); err == nil && len(args) > 0 {
		evt.RoomName = args[0]
		if len(args) > 1 {
			evt.Username = args[1]
		}
		if len(args) > 2 {
			evt.Language = args[2]
		}
		return evt, nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err == nil && name != "" {
		return RoomEvent{RoomName: name}, nil
	}
	return RoomEvent{}, errBadPayload
}

// decodeString 解析裸字符串载荷（authenticate/startListen/stopListen）。
func decodeString(data []byte) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return "", errBadPayload
	}
	return s, nil
}
