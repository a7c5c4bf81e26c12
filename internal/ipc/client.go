package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	return NewClientWithPath(SocketPath())
}

// NewClientWithPath creates a client for a non-default socket location
func NewClientWithPath(path string) *Client {
	return &Client{
		socketPath: path,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ListWindows retrieves every managed window
func (c *Client) ListWindows() (*WindowsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListWindows})
	if err != nil {
		return nil, err
	}

	var data WindowsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse windows data: %w", err)
	}

	return &data, nil
}

// GetDisplays retrieves display information
func (c *Client) GetDisplays() (*DisplaysData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetDisplays})
	if err != nil {
		return nil, err
	}

	var data DisplaysData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse displays data: %w", err)
	}

	return &data, nil
}

// CreateWindow asks the daemon to create and show a window
func (c *Client) CreateWindow(p CreateWindowPayload) (int64, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal create payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandCreateWindow, Payload: payload})
	if err != nil {
		return 0, err
	}

	var data CreateWindowData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("failed to parse create data: %w", err)
	}

	return data.View, nil
}

// SetState changes a window's show state
func (c *Client) SetState(view int64, state string) error {
	payload, err := json.Marshal(SetStatePayload{View: view, State: state})
	if err != nil {
		return fmt.Errorf("failed to marshal set-state payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetState, Payload: payload})
	return err
}

// SetSize resizes a window's client area (logical coordinates)
func (c *Client) SetSize(view int64, width, height float64) error {
	payload, err := json.Marshal(SetSizePayload{View: view, Width: width, Height: height})
	if err != nil {
		return fmt.Errorf("failed to marshal set-size payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetSize, Payload: payload})
	return err
}

// SetTitle changes a window's caption
func (c *Client) SetTitle(view int64, title string) error {
	payload, err := json.Marshal(SetTitlePayload{View: view, Title: title})
	if err != nil {
		return fmt.Errorf("failed to marshal set-title payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetTitle, Payload: payload})
	return err
}

// ClosePopups closes the popups owned by a window and reports how many
func (c *Client) ClosePopups(view int64) (int, error) {
	payload, err := json.Marshal(ClosePopupsPayload{View: view})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal close-popups payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandClosePopups, Payload: payload})
	if err != nil {
		return 0, err
	}

	var data ClosePopupsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("failed to parse close-popups data: %w", err)
	}

	return data.Closed, nil
}

// DestroyWindow destroys a window
func (c *Client) DestroyWindow(view int64) error {
	payload, err := json.Marshal(DestroyWindowPayload{View: view})
	if err != nil {
		return fmt.Errorf("failed to marshal destroy payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandDestroyWindow, Payload: payload})
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
