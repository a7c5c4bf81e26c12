package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/embery/winman/internal/config"
	"github.com/embery/winman/internal/controller"
	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/inspect"
	"github.com/embery/winman/internal/ipc"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/window"
	"github.com/embery/winman/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: winman daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: winman daemon")
			os.Exit(2)
		}
		os.Exit(runDaemon())
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "displays":
		os.Exit(runDisplays(os.Args[2:]))
	case "create":
		os.Exit(runCreate(os.Args[2:]))
	case "set-state":
		os.Exit(runSetState(os.Args[2:]))
	case "set-size":
		os.Exit(runSetSize(os.Args[2:]))
	case "set-title":
		os.Exit(runSetTitle(os.Args[2:]))
	case "close-popups":
		os.Exit(runClosePopups(os.Args[2:]))
	case "destroy":
		os.Exit(runDestroy(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winman <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the winman daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  list                List managed windows")
	fmt.Fprintln(w, "  displays            List connected displays")
	fmt.Fprintln(w, "  create              Create and show a window")
	fmt.Fprintln(w, "  set-state           Restore, maximize, or minimize a window")
	fmt.Fprintln(w, "  set-size            Resize a window's client area")
	fmt.Fprintln(w, "  set-title           Change a window's caption")
	fmt.Fprintln(w, "  close-popups        Close all popups owned by a window")
	fmt.Fprintln(w, "  destroy             Destroy a window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config print        Print the effective configuration")
	fmt.Fprintln(w, "  config validate     Validate the configuration file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP inspection server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winman <command> --help' for command-specific options.")
}

func themeFromConfig(cfg *config.Config) native.Theme {
	if cfg.Theme == "dark" {
		return native.ThemeDark
	}
	return native.ThemeLight
}

func socketPath(cfg *config.Config) string {
	if cfg.Socket != "" {
		return cfg.Socket
	}
	return ipc.SocketPath()
}

// newClient resolves the socket the same way the daemon does, so a
// socket override in the config file works for both sides.
func newClient() *ipc.Client {
	cfg, err := config.Load()
	if err != nil || cfg.Socket == "" {
		return ipc.NewClient()
	}
	return ipc.NewClientWithPath(cfg.Socket)
}

func runDaemon() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	conn, err := x11.NewConnection()
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer conn.Close()

	platform := x11.NewPlatform(conn, logger, themeFromConfig(cfg))
	ctrl := controller.New(platform, logger)

	// The daemon is its own application: it observes messages but lets the
	// window layer and the platform defaults handle them.
	ctrl.Initialize(func(msg *controller.Message) {
		logger.Debug("window message",
			"view", msg.ViewID,
			"code", msg.Code.String(),
			"param1", msg.Param1,
			"param2", msg.Param2)
	})

	// One lock serializes native event dispatch and IPC commands.
	var mu sync.Mutex
	platform.SetDispatchLock(&mu)

	server := ipc.NewServer(ctrl, platform, &mu, logger, socketPath(cfg))
	if err := server.Start(); err != nil {
		logger.Error("failed to start ipc server", "error", err)
		return 1
	}
	defer server.Stop()

	if err := createDefaultWindow(ctrl, cfg, &mu); err != nil {
		logger.Error("failed to create default window", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		mu.Lock()
		ctrl.Shutdown()
		mu.Unlock()
		cancel()
		conn.Close()
	}()

	logger.Info("winman daemon started", "socket", socketPath(cfg))

	if err := platform.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("event loop failed", "error", err)
		return 1
	}
	return 0
}

func createDefaultWindow(ctrl *controller.Controller, cfg *config.Config, mu *sync.Mutex) error {
	state, err := window.ParseState(cfg.DefaultWindow.State)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	view, err := ctrl.CreateWindow(controller.CreateRequest{
		Archetype:  window.Regular,
		ClientSize: geometry.SizeF{Width: cfg.DefaultWindow.Width, Height: cfg.DefaultWindow.Height},
		State:      state,
		Title:      cfg.DefaultWindow.Title,
	})
	if err != nil {
		return err
	}
	ctrl.WindowForView(view).Show()
	return nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman status")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	status, err := newClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("Daemon running: %v\n", status.DaemonRunning)
	fmt.Printf("Windows:        %d (%d popups)\n", status.WindowCount, status.PopupCount)
	fmt.Printf("Uptime:         %ds\n", status.UptimeSeconds)
	return 0
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman list [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	data, err := newClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *jsonOut {
		out, _ := json.MarshalIndent(data.Windows, "", "  ")
		fmt.Println(string(out))
		return 0
	}

	if len(data.Windows) == 0 {
		fmt.Println("No windows")
		return 0
	}
	for _, w := range data.Windows {
		line := fmt.Sprintf("view %d: %s %q %s %.0fx%.0f", w.View, w.Archetype, w.Title, w.State, w.Width, w.Height)
		if w.OwnerView != 0 {
			line += fmt.Sprintf(" owner=%d", w.OwnerView)
		}
		if w.OwnedPopups > 0 {
			line += fmt.Sprintf(" popups=%d", w.OwnedPopups)
		}
		fmt.Println(line)
	}
	return 0
}

func runDisplays(args []string) int {
	fs := flag.NewFlagSet("displays", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman displays")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	data, err := newClient().GetDisplays()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, d := range data.Displays {
		fmt.Printf("%d: %s %dx%d+%d+%d work %dx%d dpi %d\n",
			d.ID, d.Name, d.Width, d.Height, d.X, d.Y, d.WorkWidth, d.WorkHeight, d.DPI)
	}
	return 0
}

func runCreate(args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	archetype := fs.String("archetype", "regular", "regular or popup")
	owner := fs.Int64("owner", 0, "owner view (required for popups)")
	width := fs.Float64("width", 800, "client width (logical)")
	height := fs.Float64("height", 600, "client height (logical)")
	title := fs.String("title", "", "window caption")
	state := fs.String("state", "", "restored, maximized, or minimized")
	anchorGravity := fs.String("anchor-gravity", "", "popup anchor gravity")
	popupGravity := fs.String("popup-gravity", "", "popup gravity")
	offsetX := fs.Float64("offset-x", 0, "logical X offset from anchor")
	offsetY := fs.Float64("offset-y", 0, "logical Y offset from anchor")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman create [options]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	view, err := newClient().CreateWindow(ipc.CreateWindowPayload{
		Archetype:     *archetype,
		OwnerView:     *owner,
		Width:         *width,
		Height:        *height,
		Title:         *title,
		State:         *state,
		AnchorGravity: *anchorGravity,
		PopupGravity:  *popupGravity,
		OffsetX:       *offsetX,
		OffsetY:       *offsetY,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("view %d\n", view)
	return 0
}

func parseViewArg(fs *flag.FlagSet, rest int) (int64, bool) {
	if fs.NArg() != rest+1 {
		fs.Usage()
		return 0, false
	}
	var view int64
	if _, err := fmt.Sscanf(fs.Arg(0), "%d", &view); err != nil {
		fmt.Fprintf(os.Stderr, "invalid view %q\n", fs.Arg(0))
		return 0, false
	}
	return view, true
}

func runSetState(args []string) int {
	fs := flag.NewFlagSet("set-state", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman set-state <view> <restored|maximized|minimized>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	view, ok := parseViewArg(fs, 1)
	if !ok {
		return 2
	}

	if err := newClient().SetState(view, fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSetSize(args []string) int {
	fs := flag.NewFlagSet("set-size", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman set-size <view> <width> <height>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	view, ok := parseViewArg(fs, 2)
	if !ok {
		return 2
	}
	var w, h float64
	if _, err := fmt.Sscanf(fs.Arg(1), "%g", &w); err != nil {
		fmt.Fprintf(os.Stderr, "invalid width %q\n", fs.Arg(1))
		return 2
	}
	if _, err := fmt.Sscanf(fs.Arg(2), "%g", &h); err != nil {
		fmt.Fprintf(os.Stderr, "invalid height %q\n", fs.Arg(2))
		return 2
	}

	if err := newClient().SetSize(view, w, h); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSetTitle(args []string) int {
	fs := flag.NewFlagSet("set-title", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman set-title <view> <title>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	view, ok := parseViewArg(fs, 1)
	if !ok {
		return 2
	}

	if err := newClient().SetTitle(view, fs.Arg(1)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runClosePopups(args []string) int {
	fs := flag.NewFlagSet("close-popups", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman close-popups <view>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	view, ok := parseViewArg(fs, 0)
	if !ok {
		return 2
	}

	closed, err := newClient().ClosePopups(view)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("closed %d\n", closed)
	return 0
}

func runDestroy(args []string) int {
	fs := flag.NewFlagSet("destroy", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winman destroy <view>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	view, ok := parseViewArg(fs, 0)
	if !ok {
		return 2
	}

	if err := newClient().DestroyWindow(view); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: winman config <print|validate>")
		return 2
	}

	switch args[0] {
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(out))
		return 0
	case "validate":
		if _, err := config.Load(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		path, _ := config.DefaultConfigPath()
		fmt.Printf("%s: OK\n", path)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: winman config <print|validate>")
		return 2
	}
}

func runMCP(args []string) int {
	if len(args) < 1 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: winman mcp serve")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	server := inspect.NewServer(socketPath(cfg))
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
