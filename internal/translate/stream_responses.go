package translate

import (
	"encoding/json"
	"iter"
	"strings"

	"github.com/modelrouter/proxy/internal/wire"
)

// ResponsesStream consumes a Responses API SSE stream and re-emits it as
// Anthropic stream events. Unrecognized event types are ignored; both
// response.completed and a bare EOF terminate the message gracefully.
func ResponsesStream(lines iter.Seq2[string, error], requestedModel string, emit func(wire.StreamEvent) error) error {
	a := newAssembler(requestedModel, emit)

	// Per-item bookkeeping: which text items streamed deltas, and what
	// argument prefix each function call has streamed so far.
	textStreamed := make(map[string]bool)
	argsStreamed := make(map[string]*strings.Builder)
	hasTools := false
	status := ""
	incompleteReason := ""
	done := false

	for line, err := range lines {
		if err != nil {
			if ferr := a.fail(wire.ErrAPI, "upstream connection interrupted"); ferr != nil {
				return ferr
			}
			return err
		}
		if line == "[DONE]" {
			break
		}

		var event wire.ResponsesStreamEvent
		if jsonErr := json.Unmarshal([]byte(line), &event); jsonErr != nil {
			continue
		}

		switch event.Type {
		case "response.created", "response.in_progress", "response.queued":
			upstreamID := ""
			if event.Response != nil {
				upstreamID = event.Response.ID
			}
			if err := a.ensureStarted(upstreamID); err != nil {
				return err
			}

		case "response.output_item.added":
			if event.Item != nil && event.Item.Type == "function_call" {
				hasTools = true
				if _, err := a.openTool(event.Item.CallID, event.Item.Name); err != nil {
					return err
				}
				argsStreamed[event.Item.ID] = &strings.Builder{}
			}

		case "response.output_text.delta":
			if event.Delta == "" {
				continue
			}
			textStreamed[event.ItemID] = true
			if err := a.textDelta(event.Delta); err != nil {
				return err
			}

		case "response.output_text.done":
			// Some upstreams only send the final text. Emit it whole when
			// no deltas preceded it.
			if event.Text != "" && !textStreamed[event.ItemID] {
				textStreamed[event.ItemID] = true
				if err := a.textDelta(event.Text); err != nil {
					return err
				}
			}

		case "response.function_call_arguments.delta":
			if event.Delta == "" {
				continue
			}
			if streamed, ok := argsStreamed[event.ItemID]; ok {
				streamed.WriteString(event.Delta)
			}
			if err := a.argsDelta(event.Delta); err != nil {
				return err
			}

		case "response.function_call_arguments.done":
			// The done event carries the full argument string. Emit any
			// suffix the deltas missed so concatenation stays complete.
			streamed := ""
			if builder, ok := argsStreamed[event.ItemID]; ok {
				streamed = builder.String()
			}
			if event.Arguments != "" && strings.HasPrefix(event.Arguments, streamed) {
				if suffix := event.Arguments[len(streamed):]; suffix != "" {
					if err := a.argsDelta(suffix); err != nil {
						return err
					}
				}
			}

		case "response.output_item.done":
			if err := a.closeOpen(); err != nil {
				return err
			}

		case "response.completed", "response.incomplete":
			if event.Response != nil {
				status = event.Response.Status
				if event.Response.IncompleteDetails != nil {
					incompleteReason = event.Response.IncompleteDetails.Reason
				}
				if event.Response.Usage != nil {
					a.setUsage(event.Response.Usage.InputTokens, event.Response.Usage.OutputTokens)
				}
			}
			done = true

		case "response.failed", "response.error", "error":
			message := event.Message
			if message == "" {
				message = "upstream stream failed"
			}
			if !a.started {
				return &StreamError{Kind: wire.ErrAPI, Message: message}
			}
			return a.fail(wire.ErrAPI, message)
		}

		if done {
			break
		}
	}

	return a.finish(MapResponsesStatus(status, incompleteReason, hasTools))
}
