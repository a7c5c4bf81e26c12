package inspect

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/embery/winman/internal/ipc"
)

func summarize(w ipc.WindowInfo) WindowSummary {
	return WindowSummary{
		View:        w.View,
		Archetype:   w.Archetype,
		Title:       w.Title,
		State:       w.State,
		Width:       w.Width,
		Height:      w.Height,
		OwnerView:   w.OwnerView,
		OwnedPopups: w.OwnedPopups,
	}
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	out := ListWindowsOutput{Windows: make([]WindowSummary, len(data.Windows))}
	for i, w := range data.Windows {
		out.Windows[i] = summarize(w)
	}
	return nil, out, nil
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args GetWindowInput) (*mcpsdk.CallToolResult, GetWindowOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, GetWindowOutput{}, err
	}

	for _, w := range data.Windows {
		if w.View == args.View {
			return nil, GetWindowOutput{Window: summarize(w)}, nil
		}
	}
	return nil, GetWindowOutput{}, fmt.Errorf("unknown view %d", args.View)
}

func (s *Server) handleGetDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetDisplaysInput) (*mcpsdk.CallToolResult, GetDisplaysOutput, error) {
	data, err := s.client.GetDisplays()
	if err != nil {
		return nil, GetDisplaysOutput{}, err
	}

	out := GetDisplaysOutput{Displays: make([]DisplaySummary, len(data.Displays))}
	for i, d := range data.Displays {
		out.Displays[i] = DisplaySummary{
			ID:         d.ID,
			Name:       d.Name,
			X:          d.X,
			Y:          d.Y,
			Width:      d.Width,
			Height:     d.Height,
			WorkWidth:  d.WorkWidth,
			WorkHeight: d.WorkHeight,
			DPI:        d.DPI,
		}
	}
	return nil, out, nil
}

func (s *Server) handleCreateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateWindowInput) (*mcpsdk.CallToolResult, CreateWindowOutput, error) {
	view, err := s.client.CreateWindow(ipc.CreateWindowPayload{
		Archetype:     args.Archetype,
		OwnerView:     args.OwnerView,
		Width:         args.Width,
		Height:        args.Height,
		Title:         args.Title,
		State:         args.State,
		AnchorGravity: args.AnchorGravity,
		PopupGravity:  args.PopupGravity,
		OffsetX:       args.OffsetX,
		OffsetY:       args.OffsetY,
	})
	if err != nil {
		return nil, CreateWindowOutput{}, err
	}
	return nil, CreateWindowOutput{View: view}, nil
}

func (s *Server) handleSetWindowState(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWindowStateInput) (*mcpsdk.CallToolResult, SetWindowStateOutput, error) {
	if err := s.client.SetState(args.View, args.State); err != nil {
		return nil, SetWindowStateOutput{}, err
	}
	return nil, SetWindowStateOutput{View: args.View, State: args.State}, nil
}

func (s *Server) handleClosePopups(_ context.Context, _ *mcpsdk.CallToolRequest, args ClosePopupsInput) (*mcpsdk.CallToolResult, ClosePopupsOutput, error) {
	closed, err := s.client.ClosePopups(args.View)
	if err != nil {
		return nil, ClosePopupsOutput{}, err
	}
	return nil, ClosePopupsOutput{Closed: closed}, nil
}

func (s *Server) handleDestroyWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args DestroyWindowInput) (*mcpsdk.CallToolResult, DestroyWindowOutput, error) {
	if err := s.client.DestroyWindow(args.View); err != nil {
		return nil, DestroyWindowOutput{}, err
	}
	return nil, DestroyWindowOutput{View: args.View}, nil
}
