// File: internal/protocol/server.go
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	json "github.com/json-iterator/go" // Use json-iterator for consistency and performance
	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/tools"
)

// protocolVersion is the handshake revision this server speaks.
const protocolVersion = "2024-11-05"

// Server reads newline-delimited JSON-RPC requests from one stream and
// writes responses to another. Requests are processed strictly in
// order; the dispatcher serializes execution anyway.
type Server struct {
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
	info       ServerInfo

	in io.Reader

	writeMu sync.Mutex
	out     io.Writer
}

func NewServer(registry *tools.Registry, dispatcher *tools.Dispatcher, info ServerInfo, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	return &Server{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger.Named("protocol"),
		info:       info,
		in:         in,
		out:        out,
	}
}

// Serve pumps the request stream until EOF or context cancellation.
// Malformed lines produce a parse error response rather than killing
// the stream.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.logger.Warn("Failed to parse request.", zap.Error(err))
			s.writeResponse(Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error: " + err.Error()},
			})
			continue
		}

		if resp, ok := s.handle(ctx, &req); ok {
			s.writeResponse(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("request stream failed: %w", err)
	}
	s.logger.Info("Request stream closed.")
	return nil
}

// handle routes one request. The bool reports whether a response should
// be written; notifications produce none.
func (s *Server) handle(ctx context.Context, req *Request) (Response, bool) {
	if strings.HasPrefix(req.Method, "notifications/") {
		return Response{}, false
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      s.info,
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = s.listTools()
	case "tools/call":
		result, rpcErr := s.callTool(ctx, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %q", req.Method),
		}
	}

	// A request without an id is a notification even for known methods.
	if req.ID == nil {
		return Response{}, false
	}
	return resp, true
}

func (s *Server) listTools() ListToolsResult {
	result := ListToolsResult{Tools: []ToolDescriptor{}}
	for tool := range s.registry.List() {
		result.Tools = append(result.Tools, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return result
}

// callTool invokes the dispatcher and translates its error taxonomy
// onto the wire: unknown tool and invalid arguments become JSON-RPC
// errors, execution failures are already results with isError set.
func (s *Server) callTool(ctx context.Context, params []byte) (*tools.Result, *RPCError) {
	var call CallToolParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &call); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
		}
	}
	if call.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "invalid params: missing tool name"}
	}

	result, err := s.dispatcher.Dispatch(ctx, call.Name, call.Arguments)
	if err != nil {
		var invalidArgs *tools.InvalidArgumentsError
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			return nil, &RPCError{Code: CodeMethodNotFound, Message: err.Error()}
		case errors.As(err, &invalidArgs):
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		default:
			return nil, &RPCError{Code: CodeInternalError, Message: err.Error()}
		}
	}
	return result, nil
}

func (s *Server) writeResponse(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal response.", zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("Failed to write response.", zap.Error(err))
	}
}
