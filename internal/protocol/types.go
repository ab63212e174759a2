// File: internal/protocol/types.go

// Package protocol implements the JSON-RPC 2.0 surface over stdio:
// capability discovery and tool invocation against the dispatcher.
package protocol

import (
	"encoding/json"

	"github.com/fracalo/electron-playwright-mcp/internal/schema"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one incoming JSON-RPC message. A missing ID marks a
// notification and produces no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one outgoing JSON-RPC message. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is the protocol-level error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolDescriptor is one row of the discovery listing.
type ToolDescriptor struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	InputSchema schema.Schema `json:"inputSchema"`
}

// ListToolsResult answers tools/list.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolParams carries a tools/call invocation.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ServerInfo identifies this server during the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult answers initialize.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}
