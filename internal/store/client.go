package store

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/marnhollow/arcadehost/internal/wire"
	"github.com/sony/gobreaker"
)

// Client is how both lobby tiers talk to the store: one short-lived TCP
// connection per call, wrapped in a circuit breaker so a wedged or
// unreachable store fails fast instead of hanging every lobby handler
// (grounded on RoseWrightdev-Video-Conferencing's use of
// github.com/sony/gobreaker around its own backing services).
type Client struct {
	Addr    string
	Timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a store client with a sensible default breaker: it
// opens after 5 consecutive failures and probes again after 10s.
func NewClient(addr string) *Client {
	st := gobreaker.Settings{
		Name:        "store-client",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		Addr:    addr,
		Timeout: 5 * time.Second,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

func (c *Client) call(req Request) (wire.Response, error) {
	v, err := c.breaker.Execute(func() (any, error) {
		conn, err := net.DialTimeout("tcp", c.Addr, c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("store client: dial: %w", err)
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(c.Timeout))

		if err := wire.WriteJSON(conn, req); err != nil {
			return nil, fmt.Errorf("store client: write: %w", err)
		}
		var resp wire.Response
		if err := wire.ReadJSON(conn, &resp); err != nil {
			return nil, fmt.Errorf("store client: read: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return wire.Response{}, err
	}
	return v.(wire.Response), nil
}

// Create stores a new record in coll and returns its decoded document.
func (c *Client) Create(coll string, fields Document) (Document, error) {
	data, _ := json.Marshal(map[string]any{"data": fields})
	resp, err := c.call(Request{Collection: coll, Action: "create", Data: data})
	return unwrap(resp, err)
}

// Read fetches one record by id.
func (c *Client) Read(coll, id string) (Document, error) {
	data, _ := json.Marshal(map[string]any{"id": id})
	resp, err := c.call(Request{Collection: coll, Action: "read", Data: data})
	return unwrap(resp, err)
}

// Update shallow-merges fields into an existing record.
func (c *Client) Update(coll, id string, fields Document) (Document, error) {
	data, _ := json.Marshal(map[string]any{"id": id, "data": fields})
	resp, err := c.call(Request{Collection: coll, Action: "update", Data: data})
	return unwrap(resp, err)
}

// Delete removes a record by id.
func (c *Client) Delete(coll, id string) (Document, error) {
	data, _ := json.Marshal(map[string]any{"id": id})
	resp, err := c.call(Request{Collection: coll, Action: "delete", Data: data})
	return unwrap(resp, err)
}

// Query returns every record matching filter (empty filter = whole
// collection).
func (c *Client) Query(coll string, filter Document) ([]Document, error) {
	data, _ := json.Marshal(map[string]any{"filter": filter})
	resp, err := c.call(Request{Collection: coll, Action: "query", Data: data})
	if err != nil {
		return nil, err
	}
	if resp.Status == wire.StatusError {
		return nil, fmt.Errorf("store: %s", resp.ErrorMsg)
	}
	return decodeDocs(resp.Data)
}

func unwrap(resp wire.Response, err error) (Document, error) {
	if err != nil {
		return nil, err
	}
	if resp.Status == wire.StatusError {
		return nil, fmt.Errorf("store: %s", resp.ErrorMsg)
	}
	return decodeDoc(resp.Data)
}

// decodeDoc/decodeDocs round-trip through JSON because wire.Response.Data
// arrives as the generic `any` the JSON decoder produced (map[string]any),
// not the concrete Document type.
func decodeDoc(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeDocs(v any) ([]Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d []Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}
