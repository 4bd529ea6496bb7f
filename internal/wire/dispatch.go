package wire

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc handles one decoded request on one connection and returns the
// response to send back. A HandlerFunc must never panic the listener; the
// Dispatcher recovers around every call.
type HandlerFunc func(ctx context.Context, req Request) Response

// Dispatcher routes requests with a recognised action to a HandlerFunc.
// It is the shared dispatch core for the developer and player lobby
// listeners; each registers its own action set.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	// noSessionActions names the actions exempt from the session
	// requirement described below (register, login).
	noSessionActions map[string]bool
	// RequireSession, when non-nil, is called for every action not listed
	// in noSessionActions; it must validate the sessionID embedded in the
	// request's data and return an error if absent/invalid. When nil, no
	// session check runs.
	RequireSession func(req Request) error
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:         make(map[string]HandlerFunc),
		noSessionActions: make(map[string]bool),
	}
}

// Handle registers fn for action. requiresSession controls whether
// RequireSession runs before fn on this action.
func (d *Dispatcher) Handle(action string, requiresSession bool, fn HandlerFunc) {
	d.handlers[action] = fn
	if !requiresSession {
		d.noSessionActions[action] = true
	}
}

// Dispatch decodes one Request's worth of JSON from body and returns the
// Response to send back. It never panics: a handler panic is converted into
// an error response.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Err(fmt.Sprintf("internal error: %v", r))
		}
	}()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Err("invalid request")
	}
	if req.Action == "" {
		return Err("missing action")
	}

	fn, ok := d.handlers[req.Action]
	if !ok {
		return Err(fmt.Sprintf("unrecognised action: %s", req.Action))
	}

	if d.RequireSession != nil && !d.noSessionActions[req.Action] {
		if err := d.RequireSession(req); err != nil {
			return Err(err.Error())
		}
	}

	return fn(ctx, req)
}
