// Package acp implements the Agent Session Driver's private JSON-RPC
// transport: a newline-delimited JSON-RPC 2.0 session over a subprocess's
// stdio, with a pending-request map keyed by numeric id and a dedicated
// reader goroutine — the same shape as
// goadesign-goa-ai/features/mcp/runtime/stdiocaller.go, adapted from that
// file's Content-Length-framed transport to one JSON object per line,
// and extended to dispatch unsolicited `session/update` notifications to
// a subscriber channel.
package acp

import "encoding/json"

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	// Method/Params are set on unsolicited notifications, which share the
	// same wire shape minus an id.
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return e.Message
}

// Notification is an unsolicited server-to-client message — most notably
// `session/update`.
type Notification struct {
	Method string
	Params json.RawMessage
}
