// Package translate converts between the Anthropic Messages wire format
// and the two OpenAI wire formats, in both directions, for single responses
// and for streams.
package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/modelrouter/proxy/internal/wire"
)

// ToChatCompletions maps an Anthropic Messages request onto a Chat
// Completions request. Translation never fails: blocks that have no chat
// counterpart degrade to text.
func ToChatCompletions(req *wire.MessagesRequest, model string) *wire.ChatRequest {
	out := &wire.ChatRequest{
		Model:       model,
		Messages:    []wire.ChatMessage{},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if system := req.System.Text(); system != "" {
		out.Messages = append(out.Messages, wire.ChatMessage{Role: "system", Content: system})
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			out.Messages = append(out.Messages, assistantToChat(msg.Content))
		default:
			out.Messages = append(out.Messages, userToChat(msg.Content)...)
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, wire.ChatTool{
			Type: "function",
			Function: wire.ChatFunctionSchema{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}
	out.ToolChoice = chatToolChoice(req.ToolChoice)

	return out
}

// userToChat splits a user turn into tool messages (one per tool_result,
// emitted first so they directly follow the assistant turn that issued the
// calls) and a trailing user message with everything else.
func userToChat(blocks wire.BlockList) []wire.ChatMessage {
	var messages []wire.ChatMessage
	var parts []wire.ChatContentPart

	for _, block := range blocks {
		switch block.Type {
		case wire.BlockToolResult:
			messages = append(messages, wire.ChatMessage{
				Role:       "tool",
				ToolCallID: block.ToolUseID,
				Content:    toolResultText(block),
			})
		case wire.BlockText:
			parts = append(parts, wire.ChatContentPart{Type: "text", Text: block.Text})
		case wire.BlockImage:
			parts = append(parts, wire.ChatContentPart{
				Type:     "image_url",
				ImageURL: &wire.ChatImageURL{URL: imageDataURL(block.Source)},
			})
		case wire.BlockThinking:
			// Thinking never travels upstream.
		default:
			parts = append(parts, wire.ChatContentPart{Type: "text", Text: blockAsText(block)})
		}
	}

	if len(parts) > 0 {
		messages = append(messages, wire.ChatMessage{Role: "user", Content: chatContent(parts)})
	}
	return messages
}

// assistantToChat folds an assistant turn into a single chat message:
// text blocks concatenate, tool_use blocks become tool_calls.
func assistantToChat(blocks wire.BlockList) wire.ChatMessage {
	msg := wire.ChatMessage{Role: "assistant"}
	var text strings.Builder

	for _, block := range blocks {
		switch block.Type {
		case wire.BlockText:
			text.WriteString(block.Text)
		case wire.BlockToolUse:
			args := "{}"
			if len(block.Input) > 0 {
				args = string(block.Input)
			}
			msg.ToolCalls = append(msg.ToolCalls, wire.ChatToolCall{
				ID:   block.ID,
				Type: "function",
				Function: wire.ChatFunctionCall{
					Name:      block.Name,
					Arguments: args,
				},
			})
		case wire.BlockImage:
			text.WriteString("[image omitted]")
		case wire.BlockThinking:
		default:
			text.WriteString(blockAsText(block))
		}
	}

	if text.Len() > 0 || len(msg.ToolCalls) == 0 {
		msg.Content = text.String()
	}
	return msg
}

// toolResultText flattens a tool_result payload to plain text. Non-text
// blocks become placeholders or their JSON form so the payload never goes
// silently empty. Errored results carry a marker prefix so the model can
// tell success from failure.
func toolResultText(block wire.ContentBlock) string {
	var text strings.Builder
	for _, inner := range block.Content {
		switch inner.Type {
		case wire.BlockText:
			text.WriteString(inner.Text)
		case wire.BlockImage:
			text.WriteString("[image omitted]")
		default:
			text.WriteString(blockAsText(inner))
		}
	}
	if block.IsError {
		return "[tool_error] " + text.String()
	}
	return text.String()
}

// chatContent collapses a text-only part list to a bare string, the form
// most chat upstreams prefer.
func chatContent(parts []wire.ChatContentPart) any {
	for _, part := range parts {
		if part.Type != "text" {
			return parts
		}
	}
	var texts []string
	for _, part := range parts {
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n")
}

// blockAsText renders a block with no chat counterpart as its JSON form,
// so no client content is silently dropped.
func blockAsText(block wire.ContentBlock) string {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Sprintf("[unsupported block: %s]", block.Type)
	}
	return string(raw)
}

func imageDataURL(source *wire.ImageSource) string {
	if source == nil {
		return ""
	}
	if source.Type == "url" {
		return source.Data
	}
	return fmt.Sprintf("data:%s;base64,%s", source.MediaType, source.Data)
}

// chatToolChoice maps the Anthropic tool_choice onto the chat flavor's.
func chatToolChoice(choice *wire.ToolChoice) any {
	if choice == nil {
		return nil
	}
	switch choice.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.Name},
		}
	default:
		return nil
	}
}

// ChatToMessage maps a non-streaming chat completion back onto an Anthropic
// message.
func ChatToMessage(resp *wire.ChatResponse, requestedModel string) *wire.MessageResponse {
	out := &wire.MessageResponse{
		ID:      messageID(resp.ID),
		Type:    "message",
		Role:    "assistant",
		Model:   requestedModel,
		Content: []wire.ContentBlock{},
	}

	finishReason := ""
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		finishReason = choice.FinishReason

		if text := string(choice.Message.Content); text != "" {
			out.Content = append(out.Content, wire.ContentBlock{Type: wire.BlockText, Text: text})
		}
		for _, call := range choice.Message.ToolCalls {
			out.Content = append(out.Content, wire.ContentBlock{
				Type:  wire.BlockToolUse,
				ID:    call.ID,
				Name:  call.Function.Name,
				Input: toolInputJSON(call.Function.Arguments),
			})
		}
	}

	stopReason := MapFinishReason(finishReason)
	if stopReason == "end_turn" && hasToolUse(out.Content) {
		stopReason = "tool_use"
	}
	out.StopReason = &stopReason

	if resp.Usage != nil {
		out.Usage = wire.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out
}

// toolInputJSON validates the upstream's argument string as JSON. Malformed
// arguments are preserved under a "_raw" key instead of being dropped.
func toolInputJSON(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	wrapped, err := json.Marshal(map[string]string{"_raw": arguments})
	if err != nil {
		return json.RawMessage("{}")
	}
	return wrapped
}

func hasToolUse(blocks []wire.ContentBlock) bool {
	for _, block := range blocks {
		if block.Type == wire.BlockToolUse {
			return true
		}
	}
	return false
}

// messageID derives the Anthropic message id from the upstream's, or
// synthesizes one when the upstream sent none.
func messageID(upstreamID string) string {
	if upstreamID == "" {
		return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if strings.HasPrefix(upstreamID, "msg_") {
		return upstreamID
	}
	return "msg_" + upstreamID
}
