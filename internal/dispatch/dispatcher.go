// Package dispatch orchestrates a translated request: it picks the upstream
// flavor, calls the upstream, retries once on the opposite flavor when the
// upstream says the model lives there, and translates the reply back.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelrouter/proxy/internal/router"
	"github.com/modelrouter/proxy/internal/translate"
	"github.com/modelrouter/proxy/internal/upstream"
	"github.com/modelrouter/proxy/internal/wire"
)

// APIError is an upstream failure already mapped onto the Anthropic error
// vocabulary.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Substring hints that the request was sent to the wrong API flavor.
// Matching is case-insensitive.
var fallbackHints = map[router.Flavor][]string{
	router.FlavorChat: {
		"not a chat model",
		"must use the responses api",
		"not supported in v1/chat/completions",
		"only supported in v1/responses",
	},
	router.FlavorResponses: {
		"unsupported model",
		"not supported in v1/responses",
	},
}

// Dispatcher routes Messages requests to the upstream and translates the
// results.
type Dispatcher struct {
	router       *router.Router
	client       *upstream.Client
	defaultModel string
}

// New builds a Dispatcher. A non-empty defaultModel replaces the model of
// every incoming request before routing.
func New(r *router.Router, client *upstream.Client, defaultModel string) *Dispatcher {
	return &Dispatcher{router: r, client: client, defaultModel: defaultModel}
}

// Complete handles a non-streaming request end to end.
func (d *Dispatcher) Complete(ctx context.Context, token string, req *wire.MessagesRequest) (*wire.MessageResponse, error) {
	model := d.resolveModel(req.Model)
	flavor := d.router.Classify(model)

	resp, err := d.completeWith(ctx, token, req, model, flavor)
	if shouldRetry(flavor, err) {
		// The retry's outcome is the one the client observes, success or
		// not; the wrong-flavor rejection never leaks.
		return d.completeWith(ctx, token, req, model, flavor.Other())
	}
	return resp, err
}

func (d *Dispatcher) completeWith(ctx context.Context, token string, req *wire.MessagesRequest, model string, flavor router.Flavor) (*wire.MessageResponse, error) {
	echo := echoModel(req.Model, model)

	switch flavor {
	case router.FlavorResponses:
		payload := translate.ToResponses(req, model)
		payload.Stream = false
		resp, err := d.client.Post(ctx, flavor.Endpoint(), token, payload)
		if err != nil {
			return nil, err
		}
		if resp.Status < 200 || resp.Status >= 300 {
			return nil, apiErrorFromUpstream(resp.Status, resp.Body)
		}
		var body wire.ResponsesResponse
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, &APIError{Status: 502, Kind: wire.ErrAPI, Message: "upstream returned malformed response body"}
		}
		return translate.ResponsesToMessage(&body, echo), nil

	default:
		payload := translate.ToChatCompletions(req, model)
		payload.Stream = false
		resp, err := d.client.Post(ctx, flavor.Endpoint(), token, payload)
		if err != nil {
			return nil, err
		}
		if resp.Status < 200 || resp.Status >= 300 {
			return nil, apiErrorFromUpstream(resp.Status, resp.Body)
		}
		var body wire.ChatResponse
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, &APIError{Status: 502, Kind: wire.ErrAPI, Message: "upstream returned malformed response body"}
		}
		return translate.ChatToMessage(&body, echo), nil
	}
}

// Stream handles a streaming request end to end, emitting Anthropic stream
// events through emit. The wrong-flavor retry happens while opening the
// stream, before any event reaches the client.
func (d *Dispatcher) Stream(ctx context.Context, token string, req *wire.MessagesRequest, emit func(wire.StreamEvent) error) error {
	model := d.resolveModel(req.Model)
	flavor := d.router.Classify(model)

	stream, err := d.openStream(ctx, token, req, model, flavor)
	if shouldRetry(flavor, err) {
		flavor = flavor.Other()
		stream, err = d.openStream(ctx, token, req, model, flavor)
	}
	if err != nil {
		return err
	}
	defer stream.Close()

	echo := echoModel(req.Model, model)
	if flavor == router.FlavorResponses {
		return translate.ResponsesStream(stream.Lines(), echo, emit)
	}
	return translate.ChatStream(stream.Lines(), echo, emit)
}

func (d *Dispatcher) openStream(ctx context.Context, token string, req *wire.MessagesRequest, model string, flavor router.Flavor) (*upstream.StreamResponse, error) {
	var payload any
	if flavor == router.FlavorResponses {
		body := translate.ToResponses(req, model)
		body.Stream = true
		payload = body
	} else {
		body := translate.ToChatCompletions(req, model)
		body.Stream = true
		payload = body
	}

	stream, err := d.client.PostStream(ctx, flavor.Endpoint(), token, payload)
	if err != nil {
		return nil, err
	}
	if stream.ErrBody != nil || stream.Status < 200 || stream.Status >= 300 {
		return nil, apiErrorFromUpstream(stream.Status, stream.ErrBody)
	}
	return stream, nil
}

func (d *Dispatcher) resolveModel(requested string) string {
	if d.defaultModel != "" {
		return d.defaultModel
	}
	return requested
}

// echoModel is the model name reported back to the client: the one it
// asked for, or the effective one when the request carried none.
func echoModel(requested, resolved string) string {
	if requested != "" {
		return requested
	}
	return resolved
}

// shouldRetry reports whether err is a 4xx wrong-flavor rejection worth one
// retry on the opposite flavor.
func shouldRetry(flavor router.Flavor, err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.Status < 400 || apiErr.Status >= 500 {
		return false
	}
	message := strings.ToLower(apiErr.Message)
	for _, hint := range fallbackHints[flavor] {
		if strings.Contains(message, hint) {
			return true
		}
	}
	return false
}

// apiErrorFromUpstream extracts the upstream's error message, accepting
// both the OpenAI and the Anthropic envelope.
func apiErrorFromUpstream(status int, body []byte) *APIError {
	message := fmt.Sprintf("upstream returned status %d", status)

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return &APIError{
		Status:  status,
		Kind:    wire.ErrorKindForStatus(status, message),
		Message: message,
	}
}
