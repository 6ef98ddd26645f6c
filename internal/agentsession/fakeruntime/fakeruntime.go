// Package fakeruntime is a scriptable stand-in for a real codex/opencode
// runtime subprocess, used to exercise internal/agentsession.Driver against
// an actual OS process rather than an in-memory mock. It is invoked by
// re-execing the test binary itself with an environment variable gate (see
// agentsession's driver_test.go), the same re-exec-self pattern used for
// os/exec helper processes throughout the standard library's own tests.
//
// The script driving one run is passed as JSON in the ScriptEnvVar
// environment variable: one Turn per "prompt" request the fake will
// receive, each emitting its Events as session/update notifications before
// replying with Result.
package fakeruntime

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// ScriptEnvVar names the environment variable carrying a JSON-encoded
// Script for the fake runtime process to replay.
const ScriptEnvVar = "AGENTSESSION_FAKE_SCRIPT"

// Event is one session/update notification to emit verbatim.
type Event struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Turn is everything the fake does in response to a single "prompt"
// request: emit Events in order, then reply with Result (or Error, if set).
type Turn struct {
	Events []Event         `json:"events"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ScriptedError  `json:"error,omitempty"`
	// Hang, if true, never replies to this prompt call — used to exercise
	// the driver's turn deadline.
	Hang bool `json:"hang,omitempty"`
}

// ScriptedError is a JSON-RPC error the fake should reply with instead of a
// result.
type ScriptedError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Script is the full scenario: one Turn consumed per "prompt" request, in
// order. initialize requests always succeed with an empty result.
type Script struct {
	Turns []Turn `json:"turns"`
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ScriptedError  `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Run reads newline-delimited JSON-RPC requests from r and writes responses
// and notifications to w until r is exhausted or a Turn with Hang is
// reached, in which case Run blocks forever (the caller's process-kill on
// deadline is what ends it).
func Run(r io.Reader, w io.Writer, script Script) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	turnIndex := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		switch req.Method {
		case "initialize":
			if err := writeMessage(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}); err != nil {
				return err
			}

		case "prompt":
			if turnIndex >= len(script.Turns) {
				return fmt.Errorf("fakeruntime: received more prompt calls than scripted turns (%d)", len(script.Turns))
			}
			turn := script.Turns[turnIndex]
			turnIndex++

			for _, ev := range turn.Events {
				if err := writeMessage(w, rpcResponse{JSONRPC: "2.0", Method: ev.Method, Params: ev.Params}); err != nil {
					return err
				}
			}

			if turn.Hang {
				select {} // block forever; the driver's deadline or Close ends this process
			}

			resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: turn.Result, Error: turn.Error}
			if err := writeMessage(w, resp); err != nil {
				return err
			}

		default:
			if err := writeMessage(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func writeMessage(w io.Writer, resp rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
