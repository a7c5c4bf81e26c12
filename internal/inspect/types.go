package inspect

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowSummary describes one managed window.
type WindowSummary struct {
	View        int64   `json:"view"`
	Archetype   string  `json:"archetype"`
	Title       string  `json:"title"`
	State       string  `json:"state"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	OwnerView   int64   `json:"owner_view,omitempty"`
	OwnedPopups int     `json:"owned_popups,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowSummary `json:"windows"`
}

// GetWindowInput is the input for the get_window tool.
type GetWindowInput struct {
	View int64 `json:"view" jsonschema:"required,View identifier of the window to look up"`
}

// GetWindowOutput is the output for the get_window tool.
type GetWindowOutput struct {
	Window WindowSummary `json:"window"`
}

// GetDisplaysInput is the input for the get_displays tool.
type GetDisplaysInput struct{}

// DisplaySummary describes one connected display.
type DisplaySummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	WorkWidth  int    `json:"work_width"`
	WorkHeight int    `json:"work_height"`
	DPI        int    `json:"dpi"`
}

// GetDisplaysOutput is the output for the get_displays tool.
type GetDisplaysOutput struct {
	Displays []DisplaySummary `json:"displays"`
}

// CreateWindowInput is the input for the create_window tool.
type CreateWindowInput struct {
	Archetype     string  `json:"archetype,omitempty" jsonschema:"Window archetype: regular (default) or popup"`
	OwnerView     int64   `json:"owner_view,omitempty" jsonschema:"View of the owning window. Required for popups."`
	Width         float64 `json:"width" jsonschema:"required,Client width in logical coordinates"`
	Height        float64 `json:"height" jsonschema:"required,Client height in logical coordinates"`
	Title         string  `json:"title,omitempty" jsonschema:"Window caption"`
	State         string  `json:"state,omitempty" jsonschema:"Initial state: restored (default), maximized, or minimized. Regular windows only."`
	AnchorGravity string  `json:"anchor_gravity,omitempty" jsonschema:"Anchor gravity for popups (for example top-left, bottom-right). Default: bottom-left."`
	PopupGravity  string  `json:"popup_gravity,omitempty" jsonschema:"Popup gravity for popups. Default: bottom-right."`
	OffsetX       float64 `json:"offset_x,omitempty" jsonschema:"Logical X offset from the anchor point"`
	OffsetY       float64 `json:"offset_y,omitempty" jsonschema:"Logical Y offset from the anchor point"`
}

// CreateWindowOutput is the output for the create_window tool.
type CreateWindowOutput struct {
	View int64 `json:"view"`
}

// SetWindowStateInput is the input for the set_window_state tool.
type SetWindowStateInput struct {
	View  int64  `json:"view" jsonschema:"required,View identifier of the window"`
	State string `json:"state" jsonschema:"required,Target state: restored, maximized, or minimized"`
}

// SetWindowStateOutput is the output for the set_window_state tool.
type SetWindowStateOutput struct {
	View  int64  `json:"view"`
	State string `json:"state"`
}

// ClosePopupsInput is the input for the close_popups tool.
type ClosePopupsInput struct {
	View int64 `json:"view" jsonschema:"required,View identifier of the owning window"`
}

// ClosePopupsOutput is the output for the close_popups tool.
type ClosePopupsOutput struct {
	Closed int `json:"closed"`
}

// DestroyWindowInput is the input for the destroy_window tool.
type DestroyWindowInput struct {
	View int64 `json:"view" jsonschema:"required,View identifier of the window to destroy"`
}

// DestroyWindowOutput is the output for the destroy_window tool.
type DestroyWindowOutput struct {
	View int64 `json:"view"`
}
