package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The control socket exposes model.ControlAPI over a Unix domain socket,
// one request per line.
//
//   Method        Params          Result
//   ───────────   ─────────────   ────────────────────
//   Refresh       {ID: string}    {ID: string}
//   ListWidgets   (none)          []WidgetStatus
//   GetWidget     {ID: string}    WidgetStatus
//   Health        (none)          Health
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error
//   -32004  Unknown widget

const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeApplication    = -32000
	CodeUnknownWidget  = -32004
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Health is the result of the Health method.
type Health struct {
	Status  string `json:"status" yaml:"status"`
	Uptime  string `json:"uptime" yaml:"uptime"`
	Widgets int    `json:"widgets" yaml:"widgets"`
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/goldrates/goldrates.sock, falling back to
// ~/.local/state/goldrates/goldrates.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "goldrates", "goldrates.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/goldrates.sock"
	}
	return filepath.Join(home, ".local", "state", "goldrates", "goldrates.sock")
}
