// Package toolserver exposes cuentas operations as tools over JSON-RPC 2.0
// on stdio, one message per line, in the shape MCP clients expect.
package toolserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Response is a JSON-RPC 2.0 response.
// Result must NOT have omitempty: clients wait for a result member.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result"`
	Error   *RPCError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

// errorResponse omits result, which JSON-RPC forbids alongside error.
type errorResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Error   *RPCError `json:"error"`
	ID      any       `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// ToolHandler runs a tool with its decoded arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one callable operation.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	handler     ToolHandler
}

// Server reads requests from in and writes responses to out.
type Server struct {
	name    string
	version string
	log     zerolog.Logger

	mu    sync.Mutex
	out   io.Writer
	tools map[string]Tool
}

// NewServer creates a Server. Logs must not go to out.
func NewServer(name, version string, out io.Writer, log zerolog.Logger) *Server {
	return &Server{name: name, version: version, out: out, log: log, tools: make(map[string]Tool)}
}

// RegisterTool registers a handler under t.Name.
func (s *Server) RegisterTool(t Tool, handler ToolHandler) {
	t.handler = handler
	s.tools[t.Name] = t
}

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve handles messages from in until EOF or ctx is done. Requests are
// answered in arrival order.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			s.handleLine(ctx, line)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading request: %w", err)
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	var msg rawMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		s.sendError(nil, codeParseError, "parse error")
		return
	}
	id := decodeID(msg.ID)
	notification := len(msg.ID) == 0

	if msg.JSONRPC != "2.0" || msg.Method == "" {
		if !notification {
			s.sendError(id, codeInvalidRequest, "invalid request")
		}
		return
	}

	result, rpcErr := s.dispatch(ctx, msg)
	if notification {
		return
	}
	if rpcErr != nil {
		s.sendError(id, rpcErr.Code, rpcErr.Message)
		return
	}
	s.send(Response{JSONRPC: "2.0", Result: result, ID: id})
}

func (s *Server) dispatch(ctx context.Context, msg rawMessage) (any, *RPCError) {
	switch msg.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": s.name, "version": s.version},
		}, nil
	case "notifications/initialized", "ping":
		return map[string]any{}, nil
	case "tools/list":
		tools := make([]Tool, 0, len(s.tools))
		for _, name := range s.ToolNames() {
			tools = append(tools, s.tools[name])
		}
		return map[string]any{"tools": tools}, nil
	case "tools/call":
		return s.callTool(ctx, msg.Params)
	}
	return nil, &RPCError{Code: codeMethodNotFound, Message: "unknown method: " + msg.Method}
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// callTool runs a tool. Tool failures are reported inside the result with
// isError set, as MCP prescribes; only malformed calls are RPC errors.
func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *RPCError) {
	var p callParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid params"}
	}
	tool, ok := s.tools[p.Name]
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: "unknown tool: " + p.Name}
	}
	if p.Arguments == nil {
		p.Arguments = map[string]any{}
	}

	out, err := tool.handler(ctx, p.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", p.Name).Err(err).Msg("tool failed")
		return toolResult(err.Error(), true), nil
	}
	text, err := json.Marshal(out)
	if err != nil {
		return toolResult(fmt.Sprintf("encoding result: %v", err), true), nil
	}
	s.log.Debug().Str("tool", p.Name).Msg("tool called")
	return toolResult(string(text), false), nil
}

func toolResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
		"isError": isError,
	}
}

func (s *Server) sendError(id any, code int, message string) {
	s.send(errorResponse{JSONRPC: "2.0", Error: &RPCError{Code: code, Message: message}, ID: id})
}

func (s *Server) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal response")
		return
	}
	s.mu.Lock()
	_, err = fmt.Fprintf(s.out, "%s\n", data)
	s.mu.Unlock()
	if err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

// decodeID keeps string and numeric ids as the client sent them.
func decodeID(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var id any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&id); err != nil {
		return nil
	}
	return id
}
