package translate_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelrouter/proxy/internal/translate"
	"github.com/modelrouter/proxy/internal/wire"
)

// normalizeJSON unmarshals and remarshals JSON to normalize whitespace
func normalizeJSON(t *testing.T, s string) string {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("Invalid JSON: %v\nJSON: %s", err, s)
	}
	normalized, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal JSON: %v", err)
	}
	return string(normalized)
}

// assertJSONEqual compares two JSON strings for semantic equality.
func assertJSONEqual(t *testing.T, got, want string) {
	t.Helper()
	gotNorm := normalizeJSON(t, got)
	wantNorm := normalizeJSON(t, want)
	if gotNorm != wantNorm {
		t.Errorf("JSON mismatch:\ngot:  %s\nwant: %s", gotNorm, wantNorm)
	}
}

func decodeMessagesRequest(t *testing.T, body string) *wire.MessagesRequest {
	t.Helper()
	var req wire.MessagesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decoding request: %v", err)
	}
	return &req
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(out)
}

func TestToChatCompletionsSimpleText(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"max_tokens": 100,
		"system": "You are terse.",
		"messages": [{"role": "user", "content": "Hi"}]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")

	assertJSONEqual(t, marshal(t, out), `{
		"model": "gpt-4o",
		"max_tokens": 100,
		"messages": [
			{"role": "system", "content": "You are terse."},
			{"role": "user", "content": "Hi"}
		]
	}`)
}

func TestToChatCompletionsToolResultsPrecedeUserText(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"messages": [
			{"role": "assistant", "content": [
				{"type": "tool_use", "id": "call_1", "name": "get_weather", "input": {"city": "Paris"}}
			]},
			{"role": "user", "content": [
				{"type": "text", "text": "and now?"},
				{"type": "tool_result", "tool_use_id": "call_1", "content": "12C"}
			]}
		]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")

	if len(out.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %s", len(out.Messages), marshal(t, out.Messages))
	}
	if out.Messages[0].Role != "assistant" || len(out.Messages[0].ToolCalls) != 1 {
		t.Errorf("message 0 should be the assistant tool call: %s", marshal(t, out.Messages[0]))
	}
	if out.Messages[0].ToolCalls[0].Function.Arguments != `{"city": "Paris"}` {
		t.Errorf("arguments = %q", out.Messages[0].ToolCalls[0].Function.Arguments)
	}
	if out.Messages[1].Role != "tool" || out.Messages[1].ToolCallID != "call_1" {
		t.Errorf("message 1 should be the tool result: %s", marshal(t, out.Messages[1]))
	}
	if out.Messages[1].Content != "12C" {
		t.Errorf("tool content = %v", out.Messages[1].Content)
	}
	if out.Messages[2].Role != "user" || out.Messages[2].Content != "and now?" {
		t.Errorf("message 2 should be the remaining user text: %s", marshal(t, out.Messages[2]))
	}
}

func TestToChatCompletionsErroredToolResult(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"messages": [
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "call_1", "content": "timeout", "is_error": true}
			]}
		]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")
	if out.Messages[0].Content != "[tool_error] timeout" {
		t.Errorf("errored tool result = %v", out.Messages[0].Content)
	}
}

func TestToChatCompletionsToolResultWithNonTextBlocks(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"messages": [
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "call_1", "content": [
					{"type": "text", "text": "chart: "},
					{"type": "image", "source": {"type": "base64", "media_type": "image/png", "data": "AAAA"}},
					{"type": "text", "text": "done"}
				]}
			]}
		]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")
	if out.Messages[0].Content != "chart: [image omitted]done" {
		t.Errorf("mixed tool result = %v", out.Messages[0].Content)
	}
}

func TestToChatCompletionsImageAndUnknownBlocks(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"messages": [
			{"role": "user", "content": [
				{"type": "text", "text": "what is this?"},
				{"type": "image", "source": {"type": "base64", "media_type": "image/png", "data": "AAAA"}},
				{"type": "mystery", "value": 7}
			]}
		]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")

	parts, ok := out.Messages[0].Content.([]wire.ChatContentPart)
	if !ok {
		t.Fatalf("content should be a part list, got %T", out.Messages[0].Content)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("image part = %+v", parts[1])
	}
	// The unknown block degrades to its JSON form.
	if parts[2].Type != "text" {
		t.Errorf("unknown block should become text, got %+v", parts[2])
	}
	assertJSONEqual(t, parts[2].Text, `{"type":"mystery","value":7}`)
}

func TestToChatCompletionsThinkingDroppedTopKDropped(t *testing.T) {
	req := decodeMessagesRequest(t, `{
		"model": "gpt-4o",
		"top_k": 40,
		"stop_sequences": ["END"],
		"messages": [
			{"role": "assistant", "content": [
				{"type": "thinking", "thinking": "let me see"},
				{"type": "text", "text": "Sure"}
			]}
		]
	}`)

	out := translate.ToChatCompletions(req, "gpt-4o")
	if out.Messages[0].Content != "Sure" {
		t.Errorf("thinking should be dropped: %v", out.Messages[0].Content)
	}
	if len(out.Stop) != 1 || out.Stop[0] != "END" {
		t.Errorf("stop = %v", out.Stop)
	}
	// top_k has no chat counterpart and must not appear anywhere.
	if body := marshal(t, out); strings.Contains(body, "top_k") {
		t.Errorf("top_k leaked into the chat request: %s", body)
	}
}

func TestChatToolChoiceMapping(t *testing.T) {
	tests := []struct {
		choice string
		want   string
	}{
		{`"auto"`, `"auto"`},
		{`{"type":"any"}`, `"required"`},
		{`{"type":"none"}`, `"none"`},
		{`{"type":"tool","name":"get_weather"}`, `{"type":"function","function":{"name":"get_weather"}}`},
	}

	for _, tt := range tests {
		req := decodeMessagesRequest(t, `{"model":"m","messages":[],"tool_choice":`+tt.choice+`}`)
		out := translate.ToChatCompletions(req, "m")
		assertJSONEqual(t, marshal(t, out.ToolChoice), tt.want)
	}
}

func TestChatToMessage(t *testing.T) {
	var resp wire.ChatResponse
	err := json.Unmarshal([]byte(`{
		"id": "chatcmpl-123",
		"model": "gpt-4o",
		"choices": [{
			"message": {"role": "assistant", "content": "Hello!"},
			"finish_reason": "stop"
		}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 3}
	}`), &resp)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	out := translate.ChatToMessage(&resp, "claude-gpt-4o")

	assertJSONEqual(t, marshal(t, out), `{
		"id": "msg_chatcmpl-123",
		"type": "message",
		"role": "assistant",
		"model": "claude-gpt-4o",
		"content": [{"type": "text", "text": "Hello!"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 9, "output_tokens": 3}
	}`)
}

func TestChatToMessageToolCalls(t *testing.T) {
	var resp wire.ChatResponse
	err := json.Unmarshal([]byte(`{
		"id": "chatcmpl-9",
		"choices": [{
			"message": {
				"role": "assistant",
				"content": null,
				"tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}},
					{"id": "call_2", "type": "function", "function": {"name": "broken", "arguments": "{not json"}}
				]
			},
			"finish_reason": "stop"
		}]
	}`), &resp)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	out := translate.ChatToMessage(&resp, "m")

	if len(out.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out.Content))
	}
	assertJSONEqual(t, marshal(t, out.Content[0]),
		`{"type":"tool_use","id":"call_1","name":"get_weather","input":{"city":"Paris"}}`)
	// Malformed arguments survive under _raw instead of being dropped.
	assertJSONEqual(t, marshal(t, out.Content[1]),
		`{"type":"tool_use","id":"call_2","name":"broken","input":{"_raw":"{not json"}}`)

	// finish_reason said stop, but tool calls force tool_use.
	if out.StopReason == nil || *out.StopReason != "tool_use" {
		t.Errorf("StopReason = %v", out.StopReason)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"stop", "end_turn"},
		{"length", "max_tokens"},
		{"tool_calls", "tool_use"},
		{"function_call", "tool_use"},
		{"content_filter", "end_turn"},
		{"", "end_turn"},
		{"weird_future_reason", "end_turn"},
	}
	for _, tt := range tests {
		if got := translate.MapFinishReason(tt.reason); got != tt.want {
			t.Errorf("MapFinishReason(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
