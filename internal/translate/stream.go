package translate

import (
	"strings"

	"github.com/google/uuid"

	"github.com/modelrouter/proxy/internal/wire"
)

// StreamError is an upstream failure reported before any Anthropic event
// was emitted, so the caller can still answer with a plain HTTP error.
type StreamError struct {
	Kind    string
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// assembler turns upstream stream fragments into a well-formed Anthropic
// event sequence: exactly one message_start and message_stop, at most one
// open content block at a time, dense block indices, and balanced
// start/stop pairs. Both upstream flavors drive the same assembler.
type assembler struct {
	emit           func(wire.StreamEvent) error
	requestedModel string

	started    bool
	stopped    bool
	openIndex  int
	openIsTool bool
	nextIndex  int

	inputTokens  int64
	outputTokens int64
	haveUsage    bool
}

func newAssembler(requestedModel string, emit func(wire.StreamEvent) error) *assembler {
	return &assembler{
		emit:           emit,
		requestedModel: requestedModel,
		openIndex:      -1,
	}
}

// ensureStarted emits the message_start frame once, with an empty content
// skeleton. The upstream id is reused when present.
func (a *assembler) ensureStarted(upstreamID string) error {
	if a.started {
		return nil
	}
	a.started = true
	return a.emit(wire.StreamEvent{
		Name: wire.EventMessageStart,
		Data: wire.MessageStartEvent{
			Type: wire.EventMessageStart,
			Message: wire.MessageResponse{
				ID:      messageID(upstreamID),
				Type:    "message",
				Role:    "assistant",
				Model:   a.requestedModel,
				Content: []wire.ContentBlock{},
			},
		},
	})
}

// ensureText makes sure the open block is a text block, closing a tool
// block first if one is open.
func (a *assembler) ensureText() error {
	if a.openIndex >= 0 && !a.openIsTool {
		return nil
	}
	if err := a.closeOpen(); err != nil {
		return err
	}
	a.openIndex = a.nextIndex
	a.nextIndex++
	a.openIsTool = false
	return a.emit(wire.StreamEvent{
		Name: wire.EventContentBlockStart,
		Data: wire.ContentBlockStartEvent{
			Type:         wire.EventContentBlockStart,
			Index:        a.openIndex,
			ContentBlock: wire.ContentBlock{Type: wire.BlockText},
		},
	})
}

// textDelta appends text to the open text block, opening one if needed.
func (a *assembler) textDelta(text string) error {
	if err := a.ensureStarted(""); err != nil {
		return err
	}
	if err := a.ensureText(); err != nil {
		return err
	}
	return a.emit(wire.StreamEvent{
		Name: wire.EventContentBlockDelta,
		Data: wire.ContentBlockDeltaEvent{
			Type:  wire.EventContentBlockDelta,
			Index: a.openIndex,
			Delta: wire.TextDelta{Type: "text_delta", Text: text},
		},
	})
}

// openTool closes any open block and starts a tool_use block, returning its
// index. A missing id is synthesized so the client always gets one.
func (a *assembler) openTool(id, name string) (int, error) {
	if err := a.ensureStarted(""); err != nil {
		return 0, err
	}
	if err := a.closeOpen(); err != nil {
		return 0, err
	}
	index := a.nextIndex
	a.nextIndex++
	a.openIndex = index
	a.openIsTool = true
	if id == "" {
		id = "toolu_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return index, a.emit(wire.StreamEvent{
		Name: wire.EventContentBlockStart,
		Data: wire.ContentBlockStartEvent{
			Type:  wire.EventContentBlockStart,
			Index: index,
			ContentBlock: wire.ContentBlock{
				Type: wire.BlockToolUse,
				ID:   id,
				Name: name,
			},
		},
	})
}

// argsDelta appends a tool-input JSON fragment to the open tool block.
func (a *assembler) argsDelta(partial string) error {
	if a.openIndex < 0 || !a.openIsTool {
		return nil
	}
	return a.emit(wire.StreamEvent{
		Name: wire.EventContentBlockDelta,
		Data: wire.ContentBlockDeltaEvent{
			Type:  wire.EventContentBlockDelta,
			Index: a.openIndex,
			Delta: wire.InputJSONDelta{Type: "input_json_delta", PartialJSON: partial},
		},
	})
}

// closeOpen emits content_block_stop for the open block, if any.
func (a *assembler) closeOpen() error {
	if a.openIndex < 0 {
		return nil
	}
	index := a.openIndex
	a.openIndex = -1
	a.openIsTool = false
	return a.emit(wire.StreamEvent{
		Name: wire.EventContentBlockStop,
		Data: wire.ContentBlockStopEvent{
			Type:  wire.EventContentBlockStop,
			Index: index,
		},
	})
}

// setUsage records the upstream's token accounting for the terminal
// message_delta.
func (a *assembler) setUsage(input, output int64) {
	a.inputTokens = input
	a.outputTokens = output
	a.haveUsage = true
}

// finish closes the open block and emits the terminal
// message_delta/message_stop pair. It is a no-op after the stream has
// already terminated.
func (a *assembler) finish(stopReason string) error {
	if a.stopped {
		return nil
	}
	if err := a.ensureStarted(""); err != nil {
		return err
	}
	if err := a.closeOpen(); err != nil {
		return err
	}
	a.stopped = true

	var usage *wire.MessageUsage
	if a.haveUsage {
		usage = &wire.MessageUsage{
			InputTokens:  a.inputTokens,
			OutputTokens: a.outputTokens,
		}
	}
	if err := a.emit(wire.StreamEvent{
		Name: wire.EventMessageDelta,
		Data: wire.MessageDeltaEvent{
			Type:  wire.EventMessageDelta,
			Delta: wire.MessageDelta{StopReason: stopReason},
			Usage: usage,
		},
	}); err != nil {
		return err
	}
	return a.emit(wire.StreamEvent{
		Name: wire.EventMessageStop,
		Data: wire.MessageStopEvent{Type: wire.EventMessageStop},
	})
}

// fail emits an in-stream error event followed by message_stop. It does
// nothing when message_start was never emitted; the caller then reports the
// failure as a plain HTTP error instead.
func (a *assembler) fail(kind, message string) error {
	if !a.started || a.stopped {
		return nil
	}
	a.stopped = true
	if err := a.emit(wire.StreamEvent{
		Name: wire.EventError,
		Data: wire.ErrorEvent{
			Type:  wire.EventError,
			Error: wire.ErrorDetail{Type: kind, Message: message},
		},
	}); err != nil {
		return err
	}
	return a.emit(wire.StreamEvent{
		Name: wire.EventMessageStop,
		Data: wire.MessageStopEvent{Type: wire.EventMessageStop},
	})
}
