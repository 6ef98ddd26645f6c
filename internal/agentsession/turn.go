package agentsession

import (
	"encoding/json"
	"strings"

	"github.com/taskpilot-dev/taskpilot/internal/acp"
	"github.com/taskpilot-dev/taskpilot/internal/mcptools"
)

// turnState accumulates everything observed over one prompt turn's
// session/update notification stream — tool_call, tool_call_update,
// agent_message_chunk, agent_thought_chunk, session_meta
// and turn_complete event types).
//
// A turnState is only ever written by the goroutine driving one runTurn
// call; the result handed back across goroutines always passes through a
// channel send, which provides the happens-before edge the reader needs —
// no mutex required, and turnState stays safe to copy by value.
type turnState struct {
	text strings.Builder

	toolCallTitles []string
	mcpCount       int
	nonMCPCount    int

	modelName  string
	stopReason string
}

type agentMessageChunkParams struct {
	Text string `json:"text"`
}

type toolCallParams struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type sessionMetaParams struct {
	Model     string `json:"model"`
	ModelName string `json:"modelName"`
}

type turnCompleteParams struct {
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	StopReason string `json:"stopReason"`
}

type promptResult struct {
	Model     string `json:"model"`
	ModelName string `json:"modelName"`
}

// applyNotification folds one session/update event into the turn state and
// reports whether the turn is now complete.
func (st *turnState) applyNotification(n acp.Notification) bool {
	switch n.Method {
	case "agent_message_chunk":
		var p agentMessageChunkParams
		_ = json.Unmarshal(n.Params, &p)
		st.text.WriteString(p.Text)

	case "agent_thought_chunk":
		// Thoughts are not part of the rendered completion text.

	case "tool_call":
		var p toolCallParams
		_ = json.Unmarshal(n.Params, &p)
		st.toolCallTitles = append(st.toolCallTitles, p.Title)
		if isMCPToolCall(p.Title) {
			st.mcpCount++
		} else {
			st.nonMCPCount++
		}

	case "tool_call_update":
		// Status transitions of an already-counted tool call; no new counts.

	case "session_meta":
		var p sessionMetaParams
		_ = json.Unmarshal(n.Params, &p)
		if p.Model != "" {
			st.modelName = p.Model
		}
		if p.ModelName != "" {
			st.modelName = p.ModelName
		}

	case "turn_complete":
		var p turnCompleteParams
		_ = json.Unmarshal(n.Params, &p)
		switch {
		case p.StopReason != "":
			st.stopReason = p.StopReason
		case p.Reason != "":
			st.stopReason = p.Reason
		default:
			st.stopReason = p.Status
		}
		return true
	}
	return false
}

func (st *turnState) applyPromptResult(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var pr promptResult
	if err := json.Unmarshal(raw, &pr); err != nil {
		return
	}
	if pr.Model != "" {
		st.modelName = pr.Model
	}
	if pr.ModelName != "" {
		st.modelName = pr.ModelName
	}
}

// isMCPToolCall reports whether an observed tool-call title names an
// MCP-namespaced operation: any title containing "mcp__", as in
// "functions.mcp__{server}__{tool}". A bare "{server}_{tool}" title is not
// recognized and is counted as a non-MCP call.
func isMCPToolCall(title string) bool {
	return strings.Contains(title, "mcp__")
}

// onlyResourceDiscoveryCalls reports whether every observed MCP tool call
// was a resource-discovery call (list_mcp_resources/read_mcp_resource/
// *_templates) and at least one MCP call happened at all — the
// "resource-discovery-only" retry trigger.
func onlyResourceDiscoveryCalls(titles []string) bool {
	sawMCP := false
	for _, title := range titles {
		if !isMCPToolCall(title) {
			continue
		}
		sawMCP = true
		if !mcptools.IsResourceDiscoveryTool(title) {
			return false
		}
	}
	return sawMCP
}

func anyRequiredToolCalled(required []string, titles []string) bool {
	for _, title := range titles {
		for _, req := range required {
			if strings.Contains(title, req) {
				return true
			}
		}
	}
	return false
}
