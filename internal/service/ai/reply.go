package ai

import (
	"encoding/json"
	"strings"

	"github.com/zhouzirui/heartline/backend/internal/model/chat"
)

// ParseStage records which pass produced a ParseResult.
type ParseStage string

const (
	StageStrict  ParseStage = "strict"
	StageSalvage ParseStage = "salvage"
	StageFailed  ParseStage = "failed"
)

// ParseResult is the outcome of parsing raw model output. HasResponse is false
// when the object carried no "response" field.
type ParseResult struct {
	Reply       chat.Reply
	Stage       ParseStage
	HasResponse bool
}

// OK reports whether a usable reply was decoded.
func (r ParseResult) OK() bool {
	return r.Stage != StageFailed && r.HasResponse
}

// StripFences removes a surrounding ```json ... ``` or ``` ... ``` wrapper.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	switch {
	case strings.HasPrefix(text, "```json"):
		return strings.TrimSpace(text[len("```json") : len(text)-3])
	case strings.HasPrefix(text, "```"):
		return strings.TrimSpace(text[3 : len(text)-3])
	default:
		return text
	}
}

// ParseReply decodes model output. It tries the fence-stripped text first and
// then the substring between the first '{' and the last '}' of the raw text.
func ParseReply(raw string) ParseResult {
	if reply, has, ok := decodeReply(StripFences(raw)); ok {
		return ParseResult{Reply: reply, Stage: StageStrict, HasResponse: has}
	}

	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if reply, has, ok := decodeReply(raw[start : end+1]); ok {
			return ParseResult{Reply: reply, Stage: StageSalvage, HasResponse: has}
		}
	}
	return ParseResult{Stage: StageFailed}
}

// wireReply keeps every field raw so a mistyped field does not discard the others.
type wireReply struct {
	Appraisal  json.RawMessage `json:"appraisal"`
	Regulation json.RawMessage `json:"regulation"`
	Response   json.RawMessage `json:"response"`
}

func decodeReply(text string) (chat.Reply, bool, bool) {
	var wire wireReply
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return chat.Reply{}, false, false
	}

	// 非字符串的 appraisal 留空，由 Sanitize 归一为 Challenge。
	appraisal, _ := decodeString(wire.Appraisal)
	reply := chat.Reply{
		Appraisal:  chat.Appraisal(appraisal),
		Regulation: decodeRegulation(wire.Regulation),
	}
	response, ok := decodeString(wire.Response)
	if !ok {
		return reply, false, true
	}
	reply.Response = response
	return reply, true, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeRegulation accepts a list of strings or a single string.
func decodeRegulation(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
