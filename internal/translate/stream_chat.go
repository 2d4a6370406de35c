package translate

import (
	"encoding/json"
	"iter"
	"strconv"
	"strings"

	"github.com/modelrouter/proxy/internal/wire"
)

// chatToolState tracks one upstream tool call across chunks. Argument
// fragments that arrive before the function name are buffered; the
// Anthropic block only opens once the name is known.
type chatToolState struct {
	id      string
	name    string
	started bool
	pending []string
}

// ChatStream consumes a Chat Completions SSE stream and re-emits it as
// Anthropic stream events. Unparseable chunks are skipped; both [DONE] and
// a bare EOF terminate the message gracefully.
func ChatStream(lines iter.Seq2[string, error], requestedModel string, emit func(wire.StreamEvent) error) error {
	a := newAssembler(requestedModel, emit)

	tools := make(map[int]*chatToolState)
	var order []int
	var active *chatToolState
	finishReason := ""
	sawTools := false

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

		var chunk wire.ChatChunk
		if jsonErr := json.Unmarshal([]byte(line), &chunk); jsonErr != nil {
			continue
		}
		if err := a.ensureStarted(chunk.ID); err != nil {
			return err
		}
		if chunk.Usage != nil {
			a.setUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = *choice.FinishReason
		}

		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			if err := a.textDelta(*choice.Delta.Content); err != nil {
				return err
			}
		}

		for _, call := range choice.Delta.ToolCalls {
			sawTools = true
			state, ok := tools[call.Index]
			if !ok {
				state = &chatToolState{}
				tools[call.Index] = state
				order = append(order, call.Index)
			}
			if call.ID != "" {
				state.id = call.ID
			}
			var fragment string
			if call.Function != nil {
				if call.Function.Name != "" {
					state.name = call.Function.Name
				}
				fragment = call.Function.Arguments
			}

			if !state.started && state.name != "" {
				if state.id == "" {
					state.id = "toolu_" + strconv.Itoa(call.Index)
				}
				if _, err := a.openTool(state.id, state.name); err != nil {
					return err
				}
				state.started = true
				active = state
				for _, buffered := range state.pending {
					if err := a.argsDelta(buffered); err != nil {
						return err
					}
				}
				state.pending = nil
			}

			if fragment == "" {
				continue
			}
			// Fragments can only stream into the block while it is the
			// open one. Anything else (name not yet seen, or the upstream
			// interleaving calls) is buffered for the terminal flush.
			if state == active && a.openIsTool {
				if err := a.argsDelta(fragment); err != nil {
					return err
				}
			} else {
				state.pending = append(state.pending, fragment)
			}
		}
	}

	// Buffered arguments are never lost: tool calls whose name never
	// arrived still get a block, and fragments displaced by interleaving
	// are flushed into a continuation block carrying the same id.
	for _, index := range order {
		state := tools[index]
		args := strings.Join(state.pending, "")
		if state.started && args == "" {
			continue
		}
		if state.id == "" {
			state.id = "toolu_" + strconv.Itoa(index)
		}
		if _, err := a.openTool(state.id, state.name); err != nil {
			return err
		}
		if args != "" {
			if err := a.argsDelta(args); err != nil {
				return err
			}
		}
		if err := a.closeOpen(); err != nil {
			return err
		}
	}

	stopReason := MapFinishReason(finishReason)
	if stopReason == "end_turn" && sawTools {
		stopReason = "tool_use"
	}
	return a.finish(stopReason)
}
