package winamax

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"WinamaxFeed/internal/model"
)

// FramePrefix Socket.IO 事件包 42["m",<payload>] 的固定前缀
const FramePrefix = `42["m",`

var (
	// ErrNotFrame 文本不是 "m" 事件帧（握手、心跳、其他事件），直接忽略
	ErrNotFrame = errors.New("not a socket.io \"m\" frame")
	// ErrNotObject 帧内 JSON 合法但不是对象
	ErrNotObject = errors.New("frame payload is not a JSON object")
)

// ParseError 帧前缀正确但负载不是合法 JSON
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("解析帧负载失败: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFrame 去掉固定前缀和一个结尾的 ']'，把剩余部分解析为 JSON 对象。
// 数字保留为 json.Number。
func ParseFrame(raw string) (map[string]any, error) {
	if !strings.HasPrefix(raw, FramePrefix) {
		return nil, ErrNotFrame
	}
	body := strings.TrimSuffix(raw[len(FramePrefix):], "]")

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Raw: raw, Err: errors.New("trailing data after payload")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// FrameText 取出 websocket_message 事件中 data.raw 的文本；
// 其它事件、data 不是对象或 raw 不是字符串时返回 false
func FrameText(eventName string, data json.RawMessage) (string, bool) {
	if eventName != model.EventWebsocketMessage || len(data) == 0 {
		return "", false
	}
	var holder struct {
		Raw *string `json:"raw"`
	}
	if err := json.Unmarshal(data, &holder); err != nil || holder.Raw == nil {
		return "", false
	}
	return *holder.Raw, true
}
