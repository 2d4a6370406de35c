package translate

// MapFinishReason maps a chat finish_reason onto an Anthropic stop_reason.
// Unknown reasons default to end_turn.
func MapFinishReason(reason string) string {
	switch reason {
	case "tool_calls", "function_call", "requires_action":
		return "tool_use"
	case "length", "max_output_tokens":
		return "max_tokens"
	case "stop_sequence":
		return "stop_sequence"
	default:
		return "end_turn"
	}
}

// MapResponsesStatus maps a responses-flavor terminal status onto an
// Anthropic stop_reason. An incomplete response stopped by the token limit
// becomes max_tokens; a completed response that produced function calls
// becomes tool_use.
func MapResponsesStatus(status, incompleteReason string, hasToolCalls bool) string {
	if status == "incomplete" && incompleteReason == "max_output_tokens" {
		return "max_tokens"
	}
	if hasToolCalls {
		return "tool_use"
	}
	return "end_turn"
}
