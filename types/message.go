package types

import (
	"encoding/json"
	"fmt"
)

// Request types accepted from the content-script relay. The relay forwards
// page messages verbatim, so these values are part of the wire protocol.
const (
	MsgEventReg      = "PALI_EVENT_REG"
	MsgEventDereg    = "PALI_EVENT_DEREG"
	MsgEnableRequest = "ENABLE_REQUEST"
	MsgCalRequest    = "CAL_REQUEST"
	MsgDisconnect    = "DISCONNECT_REQUEST"
)

// Message is the envelope for every request coming from a page through the
// relay. ID is an opaque token minted by the page side; every response must
// echo it bit-exact, the relay uses it to settle the page-side promise.
type Message struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is posted back to the relay. Data carries either the result or a
// {"error": ...} object, never both.
type Response struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type errorData struct {
	Error *WireError `json:"error"`
}

// NewResult builds a success response echoing the request id.
func NewResult(id string, v interface{}) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return NewErrResponse(id, fmt.Errorf("marshal result: %w", err))
	}
	return &Response{ID: id, Data: data}
}

// NewErrResponse converts err into the structured wire error shape. Errors
// never cross the relay boundary as exceptions, a thrown error would be
// silently dropped by the transport.
func NewErrResponse(id string, err error) *Response {
	data, mErr := json.Marshal(errorData{Error: AsWireError(err)})
	if mErr != nil {
		data = []byte(`{"error":{"code":"internal","message":"unserializable error"}}`)
	}
	return &Response{ID: id, Data: data}
}

// EventID builds the id the relay expects for domain events pushed to a page,
// in the ${chain}.${origin}.${method} format.
func EventID(chain, origin string, event DomainEvent) string {
	return fmt.Sprintf("%s.%s.%s", chain, origin, event)
}
