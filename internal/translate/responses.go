package translate

import (
	"strings"

	"github.com/modelrouter/proxy/internal/wire"
)

// ToResponses maps an Anthropic Messages request onto a Responses API
// request. The system prompt travels as instructions; tool results become
// function_call_output items.
func ToResponses(req *wire.MessagesRequest, model string) *wire.ResponsesRequest {
	out := &wire.ResponsesRequest{
		Model:           model,
		Input:           []wire.ResponseItem{},
		Instructions:    req.System.Text(),
		MaxOutputTokens: req.MaxTokens,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		Stream:          req.Stream,
		Store:           false,
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			out.Input = append(out.Input, assistantToResponses(msg.Content)...)
		default:
			out.Input = append(out.Input, userToResponses(msg.Content)...)
		}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, wire.ResponsesTool{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.InputSchema,
			Strict:      false,
		})
	}
	out.ToolChoice = responsesToolChoice(req.ToolChoice)

	return out
}

// userToResponses emits function_call_output items first, then one message
// item carrying the remaining user content.
func userToResponses(blocks wire.BlockList) []wire.ResponseItem {
	var items []wire.ResponseItem
	var content []wire.ResponseContent

	for _, block := range blocks {
		switch block.Type {
		case wire.BlockToolResult:
			output := toolResultText(block)
			items = append(items, wire.ResponseItem{
				Type:   "function_call_output",
				CallID: block.ToolUseID,
				Output: &output,
			})
		case wire.BlockText:
			content = append(content, wire.ResponseContent{Type: "input_text", Text: block.Text})
		case wire.BlockImage:
			content = append(content, wire.ResponseContent{
				Type:     "input_image",
				ImageURL: imageDataURL(block.Source),
			})
		case wire.BlockThinking:
		default:
			content = append(content, wire.ResponseContent{Type: "input_text", Text: blockAsText(block)})
		}
	}

	if len(content) > 0 {
		items = append(items, wire.ResponseItem{Type: "message", Role: "user", Content: content})
	}
	return items
}

// assistantToResponses emits one message item for the turn's text and one
// function_call item per tool_use block.
func assistantToResponses(blocks wire.BlockList) []wire.ResponseItem {
	var items []wire.ResponseItem
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
			items = append(items, wire.ResponseItem{
				Type:      "function_call",
				ID:        "fc_" + block.ID,
				CallID:    block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		case wire.BlockThinking:
		default:
			text.WriteString(blockAsText(block))
		}
	}

	if text.Len() > 0 {
		items = append([]wire.ResponseItem{{
			Type: "message",
			Role: "assistant",
			Content: []wire.ResponseContent{
				{Type: "output_text", Text: text.String()},
			},
		}}, items...)
	}
	return items
}

// responsesToolChoice maps the Anthropic tool_choice onto the responses
// flavor's flattened form.
func responsesToolChoice(choice *wire.ToolChoice) any {
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
		return map[string]any{"type": "function", "name": choice.Name}
	default:
		return nil
	}
}

// ResponsesToMessage maps a non-streaming responses body back onto an
// Anthropic message. Reasoning items are dropped; output_text parts become
// text blocks and function_call items become tool_use blocks.
func ResponsesToMessage(resp *wire.ResponsesResponse, requestedModel string) *wire.MessageResponse {
	out := &wire.MessageResponse{
		ID:      messageID(resp.ID),
		Type:    "message",
		Role:    "assistant",
		Model:   requestedModel,
		Content: []wire.ContentBlock{},
	}

	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			var text strings.Builder
			for _, part := range item.Content {
				if part.Type == "output_text" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				out.Content = append(out.Content, wire.ContentBlock{
					Type: wire.BlockText,
					Text: text.String(),
				})
			}
		case "function_call":
			out.Content = append(out.Content, wire.ContentBlock{
				Type:  wire.BlockToolUse,
				ID:    item.CallID,
				Name:  item.Name,
				Input: toolInputJSON(item.Arguments),
			})
		case "reasoning":
			// Dropped: reasoning traces have no Anthropic counterpart here.
		}
	}

	incompleteReason := ""
	if resp.IncompleteDetails != nil {
		incompleteReason = resp.IncompleteDetails.Reason
	}
	stopReason := MapResponsesStatus(resp.Status, incompleteReason, hasToolUse(out.Content))
	out.StopReason = &stopReason

	if resp.Usage != nil {
		out.Usage = wire.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}
	return out
}
