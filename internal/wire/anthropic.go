// Package wire holds the request and response shapes of both API surfaces
// the proxy translates between: the Anthropic Messages API on the client
// side and the OpenAI Chat Completions / Responses APIs on the upstream
// side. The types exist only while a request is in flight; nothing here is
// persisted.
package wire

import (
	"encoding/json"
	"strings"
)

// Content block discriminators of the Anthropic Messages API.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

// MessagesRequest is the body of POST /v1/messages.
type MessagesRequest struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	System        SystemPrompt    `json:"system,omitempty"`
	MaxTokens     int64           `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int64          `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	ToolChoice    *ToolChoice     `json:"tool_choice,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	Role    string    `json:"role"`
	Content BlockList `json:"content"`
}

// BlockList is a message's content: either a bare string (treated as a
// single text block) or an ordered sequence of content blocks.
type BlockList []ContentBlock

func (b *BlockList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*b = BlockList{{Type: BlockText, Text: text}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*b = blocks
	return nil
}

// ContentBlock is one element of a message's content list. The Type field
// selects which of the remaining fields are meaningful. Blocks with an
// unrecognized type keep their original JSON in Raw so they can round-trip
// instead of being silently dropped.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string    `json:"tool_use_id,omitempty"`
	Content   BlockList `json:"content,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`

	Raw json.RawMessage `json:"-"`
}

func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	type plain ContentBlock
	var block plain
	if err := json.Unmarshal(data, &block); err != nil {
		return err
	}
	*c = ContentBlock(block)
	switch c.Type {
	case BlockText, BlockImage, BlockToolUse, BlockToolResult, BlockThinking:
	default:
		c.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// MarshalJSON emits the exact field set of each variant. Anthropic clients
// expect "text" and "input" to be present even when empty, which omitempty
// tags would drop.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	switch c.Type {
	case BlockText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{c.Type, c.Text})
	case BlockImage:
		return json.Marshal(struct {
			Type   string       `json:"type"`
			Source *ImageSource `json:"source"`
		}{c.Type, c.Source})
	case BlockToolUse:
		input := c.Input
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		return json.Marshal(struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}{c.Type, c.ID, c.Name, input})
	case BlockToolResult:
		return json.Marshal(struct {
			Type      string    `json:"type"`
			ToolUseID string    `json:"tool_use_id"`
			Content   BlockList `json:"content"`
			IsError   bool      `json:"is_error,omitempty"`
		}{c.Type, c.ToolUseID, c.Content, c.IsError})
	case BlockThinking:
		return json.Marshal(struct {
			Type     string `json:"type"`
			Thinking string `json:"thinking"`
		}{c.Type, c.Thinking})
	default:
		type plain ContentBlock
		return json.Marshal(plain(c))
	}
}

// ImageSource is the base64 image payload of an image block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// SystemPrompt is the request's system field: a bare string or a sequence
// of text blocks.
type SystemPrompt []ContentBlock

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = SystemPrompt{{Type: BlockText, Text: text}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*s = blocks
	return nil
}

// Text joins the prompt's text blocks with a blank line.
func (s SystemPrompt) Text() string {
	var texts []string
	for _, block := range s {
		if block.Type == BlockText && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// Tool is an Anthropic tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolChoice accepts both the object form {"type":"auto"} and a bare
// string, which some clients send.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		t.Type = kind
		return nil
	}
	type plain ToolChoice
	var choice plain
	if err := json.Unmarshal(data, &choice); err != nil {
		return err
	}
	*t = ToolChoice(choice)
	return nil
}

// MessageResponse is the non-streaming body of POST /v1/messages and the
// skeleton carried by the message_start stream event.
type MessageResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// Usage is the token accounting attached to a message.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Stream event names of the Anthropic SSE protocol.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// StreamEvent is one Anthropic SSE frame: the event name and its payload.
type StreamEvent struct {
	Name string
	Data any
}

// MessageStartEvent opens a streamed message.
type MessageStartEvent struct {
	Type    string          `json:"type"`
	Message MessageResponse `json:"message"`
}

// ContentBlockStartEvent opens an output block at Index.
type ContentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent carries a TextDelta or InputJSONDelta for the open
// block at Index.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta any    `json:"delta"`
}

// TextDelta appends text to an open text block.
type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InputJSONDelta appends a fragment of the tool input JSON to an open
// tool_use block. Consumers concatenate the fragments.
type InputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent carries the final stop reason and usage, immediately
// before message_stop.
type MessageDeltaEvent struct {
	Type  string        `json:"type"`
	Delta MessageDelta  `json:"delta"`
	Usage *MessageUsage `json:"usage,omitempty"`
}

// MessageDelta is the terminal delta of a stream.
type MessageDelta struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageUsage is the usage patch carried by message_delta. Input tokens
// are included when the upstream only reported them in its final chunk.
type MessageUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens"`
}

// MessageStopEvent terminates a stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// ErrorEvent is an in-stream error. No events other than message_stop may
// follow it.
type ErrorEvent struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}
