package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/embery/winman/internal/controller"
	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/placement"
	"github.com/embery/winman/internal/window"
)

// Server handles IPC requests from clients. All controller access happens
// under mu, the same lock the daemon's event loop holds while dispatching
// native events, so commands never interleave with window callbacks.
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         *controller.Controller
	platform     native.Platform
	mu           *sync.Mutex
	log          *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(ctrl *controller.Controller, platform native.Platform, mu *sync.Mutex, log *slog.Logger, socketPath string) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		platform:   platform,
		mu:         mu,
		log:        log,
		startTime:  time.Now(),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info("ipc server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.log.Warn("ipc accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn("ipc read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Warn("ipc marshal error", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn("ipc write error", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandGetDisplays:
		return s.handleGetDisplays()
	case CommandCreateWindow:
		return s.handleCreateWindow(req.Payload)
	case CommandSetState:
		return s.handleSetState(req.Payload)
	case CommandSetSize:
		return s.handleSetSize(req.Payload)
	case CommandSetTitle:
		return s.handleSetTitle(req.Payload)
	case CommandClosePopups:
		return s.handleClosePopups(req.Payload)
	case CommandDestroyWindow:
		return s.handleDestroyWindow(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	s.mu.Lock()
	windows := s.ctrl.Windows()
	popups := 0
	for _, w := range windows {
		if w.Archetype() == window.Popup {
			popups++
		}
	}
	s.mu.Unlock()

	status := StatusData{
		WindowCount:   len(windows),
		PopupCount:    popups,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWindows() *Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	windows := s.ctrl.Windows()
	infos := make([]WindowInfo, len(windows))
	for i, w := range windows {
		info := WindowInfo{
			View:        s.ctrl.ViewFor(w.Handle()),
			Handle:      uint32(w.Handle()),
			Archetype:   w.Archetype().String(),
			Title:       w.Title(),
			State:       w.State().String(),
			OwnedPopups: w.OwnedPopupCount(),
		}
		size := w.ClientSize()
		info.Width = size.Width
		info.Height = size.Height
		if owner := w.Owner(); owner != nil {
			info.OwnerView = s.ctrl.ViewFor(owner.Handle())
		}
		infos[i] = info
	}

	resp, _ := NewOKResponse(WindowsData{Windows: infos})
	return resp
}

func (s *Server) handleGetDisplays() *Response {
	displays := s.platform.Displays()
	infos := make([]DisplayInfo, len(displays))
	for i, d := range displays {
		infos[i] = DisplayInfo{
			ID:         d.ID,
			Name:       d.Name,
			X:          d.Bounds.X,
			Y:          d.Bounds.Y,
			Width:      d.Bounds.Width,
			Height:     d.Bounds.Height,
			WorkX:      d.WorkArea.X,
			WorkY:      d.WorkArea.Y,
			WorkWidth:  d.WorkArea.Width,
			WorkHeight: d.WorkArea.Height,
			DPI:        d.DPI,
		}
	}

	resp, _ := NewOKResponse(DisplaysData{Displays: infos})
	return resp
}

func (s *Server) handleCreateWindow(payload json.RawMessage) *Response {
	var p CreateWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid create payload: %v", err))
	}
	if p.Width <= 0 || p.Height <= 0 {
		return NewErrorResponse("width and height must be positive")
	}

	req := controller.CreateRequest{
		OwnerView:  p.OwnerView,
		ClientSize: geometry.SizeF{Width: p.Width, Height: p.Height},
		Title:      p.Title,
	}

	switch p.Archetype {
	case "", "regular":
		req.Archetype = window.Regular
	case "popup":
		req.Archetype = window.Popup
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown archetype: %s", p.Archetype))
	}

	if p.State != "" {
		state, err := window.ParseState(p.State)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		req.State = state
	}

	if req.Archetype == window.Popup {
		pos := &placement.Positioner{
			Anchor:     placement.GravityBottomLeft,
			Gravity:    placement.GravityBottomRight,
			Offset:     geometry.PointF{X: p.OffsetX, Y: p.OffsetY},
			Adjustment: placement.AdjustAll,
		}
		if p.AnchorGravity != "" {
			g, err := placement.ParseGravity(p.AnchorGravity)
			if err != nil {
				return NewErrorResponse(err.Error())
			}
			pos.Anchor = g
		}
		if p.PopupGravity != "" {
			g, err := placement.ParseGravity(p.PopupGravity)
			if err != nil {
				return NewErrorResponse(err.Error())
			}
			pos.Gravity = g
		}
		req.Positioner = pos
	}

	s.mu.Lock()
	view, err := s.ctrl.CreateWindow(req)
	if err == nil {
		if w := s.ctrl.WindowForView(view); w != nil {
			w.Show()
		}
	}
	s.mu.Unlock()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to create window: %v", err))
	}

	resp, _ := NewOKResponse(CreateWindowData{View: view})
	return resp
}

func (s *Server) handleSetState(payload json.RawMessage) *Response {
	var p SetStatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set state payload: %v", err))
	}
	state, err := window.ParseState(p.State)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ctrl.WindowForView(p.View)
	if w == nil {
		return NewErrorResponse(fmt.Sprintf("Unknown view: %d", p.View))
	}
	w.SetState(state)

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleSetSize(payload json.RawMessage) *Response {
	var p SetSizePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set size payload: %v", err))
	}
	if p.Width <= 0 || p.Height <= 0 {
		return NewErrorResponse("width and height must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ctrl.WindowForView(p.View)
	if w == nil {
		return NewErrorResponse(fmt.Sprintf("Unknown view: %d", p.View))
	}
	w.SetClientSize(geometry.SizeF{Width: p.Width, Height: p.Height})

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleSetTitle(payload json.RawMessage) *Response {
	var p SetTitlePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set title payload: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ctrl.WindowForView(p.View)
	if w == nil {
		return NewErrorResponse(fmt.Sprintf("Unknown view: %d", p.View))
	}
	w.SetTitle(p.Title)

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleClosePopups(payload json.RawMessage) *Response {
	var p ClosePopupsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid close popups payload: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ctrl.WindowForView(p.View)
	if w == nil {
		return NewErrorResponse(fmt.Sprintf("Unknown view: %d", p.View))
	}
	closed := w.CloseOwnedPopups()

	resp, _ := NewOKResponse(ClosePopupsData{Closed: closed})
	return resp
}

func (s *Server) handleDestroyWindow(payload json.RawMessage) *Response {
	var p DestroyWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid destroy payload: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.ctrl.WindowForView(p.View)
	if w == nil {
		return NewErrorResponse(fmt.Sprintf("Unknown view: %d", p.View))
	}
	w.Destroy()

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
