// File: internal/protocol/server_test.go
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
	"github.com/fracalo/electron-playwright-mcp/internal/config"
	"github.com/fracalo/electron-playwright-mcp/internal/schema"
	"github.com/fracalo/electron-playwright-mcp/internal/tools"
)

// runServer feeds the newline-delimited requests through a server wired
// to an in-memory transport and returns the decoded responses.
func runServer(t *testing.T, reg *tools.Registry, requests ...string) []map[string]any {
	t.Helper()

	sess := browser.NewSession(&browser.Manager{}, zap.NewNop(), config.NewDefaultConfig())
	d := tools.NewDispatcher(reg, sess, zap.NewNop())

	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	var out bytes.Buffer
	srv := NewServer(reg, d, ServerInfo{Name: "electron-mcp", Version: "test"}, in, &out, zap.NewNop())
	require.NoError(t, srv.Serve(context.Background()))

	var responses []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "response line %q", line)
		responses = append(responses, resp)
	}
	return responses
}

func echoRegistry() *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.Tool{
		Name:        "echo",
		Description: "Echo the message back.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{"message": {Type: "string"}},
			Required:   []string{"message"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*tools.Result, error) {
			return tools.TextResult("%v", args["message"]), nil
		},
	})
	return reg
}

func errorObj(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	obj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected an error object in %v", resp)
	return obj
}

func TestServeInitialize(t *testing.T) {
	// The serve loop must not leave goroutines behind after EOF.
	defer goleak.VerifyNone(t)

	responses := runServer(t, echoRegistry(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Len(t, responses, 1)

	result := responses[0]["result"].(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "electron-mcp", info["name"])
}

func TestServeToolsList(t *testing.T) {
	reg := tools.NewRegistry()
	tools.RegisterAll(reg, config.NewDefaultConfig())

	responses := runServer(t, reg, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Len(t, responses, 1)

	result := responses[0]["result"].(map[string]any)
	list := result["tools"].([]any)
	assert.Equal(t, reg.Len(), len(list))

	for _, entry := range list {
		tool := entry.(map[string]any)
		assert.NotEmpty(t, tool["name"])
		assert.NotEmpty(t, tool["description"])
		inputSchema := tool["inputSchema"].(map[string]any)
		assert.Equal(t, "object", inputSchema["type"])
	}
}

func TestServeToolsCall(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`)
		require.Len(t, responses, 1)

		result := responses[0]["result"].(map[string]any)
		content := result["content"].([]any)
		require.Len(t, content, 1)
		block := content[0].(map[string]any)
		assert.Equal(t, "text", block["type"])
		assert.Equal(t, "hi", block["text"])
	})

	t.Run("unknown tool is method-not-found", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"vanish","arguments":{}}}`)
		require.Len(t, responses, 1)

		errObj := errorObj(t, responses[0])
		assert.Equal(t, float64(CodeMethodNotFound), errObj["code"])
		assert.Contains(t, errObj["message"], "vanish")
	})

	t.Run("schema violation is invalid-params", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
		require.Len(t, responses, 1)

		errObj := errorObj(t, responses[0])
		assert.Equal(t, float64(CodeInvalidParams), errObj["code"])
		assert.Contains(t, errObj["message"], "message", "the violated field is named")
	})

	t.Run("execution failure is a result with isError", func(t *testing.T) {
		reg := echoRegistry()
		reg.Register(tools.Tool{
			Name: "fail",
			Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*tools.Result, error) {
				return nil, assert.AnError
			},
		})
		responses := runServer(t, reg,
			`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"fail"}}`)
		require.Len(t, responses, 1)

		assert.Nil(t, responses[0]["error"], "execution failures do not become protocol errors")
		result := responses[0]["result"].(map[string]any)
		assert.Equal(t, true, result["isError"])
	})

	t.Run("missing tool name", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{}}`)
		errObj := errorObj(t, responses[0])
		assert.Equal(t, float64(CodeInvalidParams), errObj["code"])
	})
}

func TestServeProtocolPlumbing(t *testing.T) {
	t.Run("unknown method", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","id":8,"method":"resources/list"}`)
		errObj := errorObj(t, responses[0])
		assert.Equal(t, float64(CodeMethodNotFound), errObj["code"])
	})

	t.Run("notifications are silent", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			`{"jsonrpc":"2.0","id":9,"method":"ping"}`)
		require.Len(t, responses, 1, "only the ping gets a response")
		assert.Equal(t, float64(9), responses[0]["id"])
	})

	t.Run("requests without id are notifications", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`{"jsonrpc":"2.0","method":"tools/list"}`,
			`{"jsonrpc":"2.0","id":10,"method":"ping"}`)
		require.Len(t, responses, 1)
	})

	t.Run("parse errors keep the stream alive", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			`this is not json`,
			`{"jsonrpc":"2.0","id":11,"method":"ping"}`)
		require.Len(t, responses, 2)

		errObj := errorObj(t, responses[0])
		assert.Equal(t, float64(CodeParseError), errObj["code"])
		assert.NotNil(t, responses[1]["result"])
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		responses := runServer(t, echoRegistry(),
			``,
			`{"jsonrpc":"2.0","id":12,"method":"ping"}`)
		require.Len(t, responses, 1)
	})
}
