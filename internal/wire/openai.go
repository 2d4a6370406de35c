package wire

import "encoding/json"

// --- Chat Completions API ---

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []ChatTool    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
}

// ChatMessage is one chat turn. Content is either a plain string or a list
// of ChatContentPart; it stays typed as any so an explicitly empty string
// still serializes while an absent content is omitted.
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ChatContentPart is one element of a multimodal chat message.
type ChatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *ChatImageURL `json:"image_url,omitempty"`
}

// ChatImageURL wraps an image reference, usually a data URL.
type ChatImageURL struct {
	URL string `json:"url"`
}

// ChatToolCall is a completed tool invocation on an assistant message.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

// ChatFunctionCall carries the function name and its JSON-encoded arguments.
type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatTool is a tool definition in the chat flavor.
type ChatTool struct {
	Type     string             `json:"type"`
	Function ChatFunctionSchema `json:"function"`
}

// ChatFunctionSchema describes a callable function.
type ChatFunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatResponse is the non-streaming body of POST /chat/completions.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// ChatChoice is one completion candidate; the proxy only reads the first.
type ChatChoice struct {
	Message      ChatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

// ChatResponseMessage is the assistant message of a chat choice.
type ChatResponseMessage struct {
	Role      string         `json:"role"`
	Content   TextOrParts    `json:"content"`
	ToolCalls []ChatToolCall `json:"tool_calls,omitempty"`
}

// TextOrParts decodes a chat content field that may be a string, null, or a
// part list, flattening it to the concatenated text.
type TextOrParts string

func (t *TextOrParts) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*t = TextOrParts(text)
		return nil
	}
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var parts []ChatContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	var joined string
	for _, part := range parts {
		if part.Type == "text" {
			joined += part.Text
		}
	}
	*t = TextOrParts(joined)
	return nil
}

// ChatUsage is the chat flavor's token accounting.
type ChatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// ChatChunk is one streamed chat completion frame.
type ChatChunk struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *ChatUsage        `json:"usage,omitempty"`
}

// ChatChunkChoice is a chunk's delta for one candidate.
type ChatChunkChoice struct {
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatDelta is the incremental payload of a chunk.
type ChatDelta struct {
	Role      string              `json:"role,omitempty"`
	Content   *string             `json:"content,omitempty"`
	ToolCalls []ChatToolCallDelta `json:"tool_calls,omitempty"`
}

// ChatToolCallDelta is an incremental tool-call fragment. Index identifies
// the call across chunks; ID and Name arrive on the first fragment,
// Arguments accumulate across fragments.
type ChatToolCallDelta struct {
	Index    int                    `json:"index"`
	ID       string                 `json:"id,omitempty"`
	Type     string                 `json:"type,omitempty"`
	Function *ChatFunctionCallDelta `json:"function,omitempty"`
}

// ChatFunctionCallDelta is the function fragment of a tool-call delta.
type ChatFunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// --- Responses API ---

// ResponsesRequest is the body of POST /responses.
type ResponsesRequest struct {
	Model           string          `json:"model"`
	Input           []ResponseItem  `json:"input"`
	Instructions    string          `json:"instructions,omitempty"`
	MaxOutputTokens int64           `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Tools           []ResponsesTool `json:"tools,omitempty"`
	ToolChoice      any             `json:"tool_choice,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	Store           bool            `json:"store"`
}

// ResponsesTool is the flattened tool definition of the responses flavor.
type ResponsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict"`
}

// ResponseItem is one input or output item of the responses flavor: a
// message, a function_call, a function_call_output, or a reasoning item.
// Output is a pointer so an empty tool output still serializes on
// function_call_output items while message items omit it.
type ResponseItem struct {
	Type      string            `json:"type,omitempty"`
	Role      string            `json:"role,omitempty"`
	Content   []ResponseContent `json:"content,omitempty"`
	ID        string            `json:"id,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Arguments string            `json:"arguments,omitempty"`
	Output    *string           `json:"output,omitempty"`
	Status    string            `json:"status,omitempty"`
}

// ResponseContent is one content part of a responses message item.
type ResponseContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ResponsesResponse is the non-streaming body of POST /responses, also
// carried whole by the response.created and response.completed stream
// events.
type ResponsesResponse struct {
	ID                string             `json:"id"`
	Model             string             `json:"model"`
	Status            string             `json:"status"`
	Output            []ResponseItem     `json:"output"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	Usage             *ResponsesUsage    `json:"usage,omitempty"`
}

// IncompleteDetails explains why a response stopped early.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// ResponsesUsage is the responses flavor's token accounting.
type ResponsesUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ResponsesStreamEvent is one typed frame of a responses stream. Only the
// fields relevant to the carried Type are populated.
type ResponsesStreamEvent struct {
	Type        string             `json:"type"`
	Response    *ResponsesResponse `json:"response,omitempty"`
	Item        *ResponseItem      `json:"item,omitempty"`
	OutputIndex int                `json:"output_index,omitempty"`
	ItemID      string             `json:"item_id,omitempty"`
	Delta       string             `json:"delta,omitempty"`
	Text        string             `json:"text,omitempty"`
	Arguments   string             `json:"arguments,omitempty"`
	Code        string             `json:"code,omitempty"`
	Message     string             `json:"message,omitempty"`
}
