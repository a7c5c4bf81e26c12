package ipc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandGetDisplays   CommandType = "GET_DISPLAYS"
	CommandCreateWindow  CommandType = "CREATE_WINDOW"
	CommandSetState      CommandType = "SET_STATE"
	CommandSetSize       CommandType = "SET_SIZE"
	CommandSetTitle      CommandType = "SET_TITLE"
	CommandClosePopups   CommandType = "CLOSE_POPUPS"
	CommandDestroyWindow CommandType = "DESTROY_WINDOW"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	WindowCount   int   `json:"window_count"`
	PopupCount    int   `json:"popup_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	DaemonRunning bool  `json:"daemon_running"`
}

// WindowInfo describes one managed window
type WindowInfo struct {
	View        int64   `json:"view"`
	Handle      uint32  `json:"handle"`
	Archetype   string  `json:"archetype"`
	Title       string  `json:"title"`
	State       string  `json:"state"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	OwnerView   int64   `json:"owner_view,omitempty"`
	OwnedPopups int     `json:"owned_popups,omitempty"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

// DisplayInfo represents information about a single display
type DisplayInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	WorkX      int    `json:"work_x"`
	WorkY      int    `json:"work_y"`
	WorkWidth  int    `json:"work_width"`
	WorkHeight int    `json:"work_height"`
	DPI        int    `json:"dpi"`
}

// DisplaysData represents the data returned by GET_DISPLAYS
type DisplaysData struct {
	Displays []DisplayInfo `json:"displays"`
}

// CreateWindowPayload represents the payload for CREATE_WINDOW
type CreateWindowPayload struct {
	Archetype string  `json:"archetype"` // "regular" or "popup"
	OwnerView int64   `json:"owner_view,omitempty"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Title     string  `json:"title,omitempty"`
	State     string  `json:"state,omitempty"`

	// Popup placement. Gravities use the names accepted by the placement
	// package ("top-left", "bottom", ...); underscores also parse.
	AnchorGravity string  `json:"anchor_gravity,omitempty"`
	PopupGravity  string  `json:"popup_gravity,omitempty"`
	OffsetX       float64 `json:"offset_x,omitempty"`
	OffsetY       float64 `json:"offset_y,omitempty"`
}

// CreateWindowData represents the data returned by CREATE_WINDOW
type CreateWindowData struct {
	View int64 `json:"view"`
}

// SetStatePayload represents the payload for SET_STATE
type SetStatePayload struct {
	View  int64  `json:"view"`
	State string `json:"state"`
}

// SetSizePayload represents the payload for SET_SIZE
type SetSizePayload struct {
	View   int64   `json:"view"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SetTitlePayload represents the payload for SET_TITLE
type SetTitlePayload struct {
	View  int64  `json:"view"`
	Title string `json:"title"`
}

// ClosePopupsPayload represents the payload for CLOSE_POPUPS
type ClosePopupsPayload struct {
	View int64 `json:"view"`
}

// ClosePopupsData represents the data returned by CLOSE_POPUPS
type ClosePopupsData struct {
	Closed int `json:"closed"`
}

// DestroyWindowPayload represents the payload for DESTROY_WINDOW
type DestroyWindowPayload struct {
	View int64 `json:"view"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// SocketPath resolves the control socket location. XDG_RUNTIME_DIR is
// preferred; the per-user temp fallback keeps multi-user hosts apart.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "winman.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("winman-%d.sock", os.Getuid()))
}
