package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// normalizeLenient turns a record that only passed the lenient schema into
// a Message. doc is the encoding/json decoding of the line.
func normalizeLenient(doc map[string]any) (*Message, error) {
	msg := &Message{
		Type:      normalizeType(doc["type"]),
		SessionID: optString(doc["sessionId"]),
		Timestamp: optString(doc["timestamp"]),

		UUID:       optString(doc["uuid"]),
		ParentUUID: optString(doc["parentUuid"]),
		RequestID:  optString(doc["requestId"]),
		UserType:   optString(doc["userType"]),
		CWD:        optString(doc["cwd"]),
		Version:    optString(doc["version"]),
		GitBranch:  optString(doc["gitBranch"]),
		ToolUseID:  optString(doc["toolUseID"]),
		Level:      optString(doc["level"]),
		Model:      optString(doc["model"]),

		IsSidechain: optBool(doc["isSidechain"]),
		IsMeta:      optBool(doc["isMeta"]),

		TokensUsed: optFloat(doc["tokensUsed"]),
		CostUSD:    optFloat(doc["costUsd"]),
		DurationMs: optFloat(doc["durationMs"]),

		ToolUseResult: normalizeToolUseResult(doc["toolUseResult"]),
	}

	if msg.SessionID == "" {
		return nil, fmt.Errorf("empty sessionId")
	}
	if msg.Timestamp == "" {
		return nil, fmt.Errorf("empty timestamp")
	}

	msg.Message = normalizeBody(doc, msg.Type)
	return msg, nil
}

// normalizeType lower-cases the record type and falls back to assistant for
// anything outside the known set.
func normalizeType(v any) MessageType {
	s, ok := v.(string)
	if !ok {
		return TypeAssistant
	}
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TypeAssistant
	}
	return t
}

// defaultRole is used when a record carries no role of its own.
func defaultRole(doc map[string]any, t MessageType) string {
	if role := optString(doc["role"]); role != "" {
		return role
	}
	if t == TypeUser {
		return string(TypeUser)
	}
	return string(TypeAssistant)
}

func normalizeBody(doc map[string]any, t MessageType) MessageBody {
	switch m := doc["message"].(type) {
	case map[string]any:
		body := MessageBody{
			Role:    optString(m["role"]),
			Content: m["content"],
			Model:   optString(m["model"]),
			ID:      optString(m["id"]),
			Usage:   normalizeUsage(m["usage"]),
		}
		if body.Role == "" {
			body.Role = defaultRole(doc, t)
		}
		if body.Content == nil {
			body.Content = topLevelContent(doc)
		}
		body.Content = normalizeContent(body.Content)
		return body
	case string, []any:
		return MessageBody{Role: string(TypeAssistant), Content: m}
	}

	return MessageBody{
		Role:    defaultRole(doc, t),
		Content: normalizeContent(topLevelContent(doc)),
	}
}

func topLevelContent(doc map[string]any) any {
	if c, ok := doc["content"]; ok && c != nil {
		return c
	}
	return ""
}

// normalizeContent keeps strings and block arrays; everything else is
// rendered to a string.
func normalizeContent(v any) any {
	switch c := v.(type) {
	case nil:
		return ""
	case string, []any:
		return c
	default:
		return optString(c)
	}
}

func normalizeUsage(v any) *Usage {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	u := &Usage{
		InputTokens:              optInt(m["input_tokens"]),
		CacheCreationInputTokens: optInt(m["cache_creation_input_tokens"]),
		CacheReadInputTokens:     optInt(m["cache_read_input_tokens"]),
		OutputTokens:             optInt(m["output_tokens"]),
		ServiceTier:              optString(m["service_tier"]),
	}
	return u
}

// normalizeToolUseResult coerces every shape the field has been seen in to
// an object. Null and absent both give nil.
func normalizeToolUseResult(v any) map[string]any {
	switch r := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return r
	case []any:
		return map[string]any{"items": r}
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(r), &parsed); err == nil {
			switch p := parsed.(type) {
			case map[string]any:
				return p
			case []any:
				return map[string]any{"items": p}
			}
		}
		return map[string]any{"data": r}
	default:
		return map[string]any{"data": r}
	}
}

// optString renders scalars the way a JavaScript String() call would and
// objects as JSON. Null gives "".
func optString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return formatNumber(s)
	case json.Number:
		return s.String()
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(data)
	}
}

func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// optBool accepts booleans and the strings "true"/"1" and "false"/"0".
func optBool(v any) *bool {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			b = true
		case "false", "0":
			b = false
		default:
			return nil
		}
	case float64:
		switch x {
		case 1:
			b = true
		case 0:
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func optFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func optInt(v any) int64 {
	if f := optFloat(v); f != nil && *f > 0 {
		return int64(*f)
	}
	return 0
}
