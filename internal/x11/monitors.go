package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/embery/winman/internal/display"
	"github.com/embery/winman/internal/geometry"
)

const mmPerInch = 25.4

// Displays enumerates active RandR CRTCs as displays. Work areas are the
// CRTC bounds intersected with the EWMH work area of the current desktop;
// DPI is derived from the output's physical dimensions with a 96 fallback.
func (p *Platform) Displays() []display.Display {
	monitors, err := p.getMonitors()
	if err != nil {
		p.log.Warn("monitor enumeration failed", "error", err)
		return nil
	}
	return monitors
}

func (p *Platform) getMonitors() ([]display.Display, error) {
	conn := p.conn.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(conn, p.conn.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	workArea := p.currentWorkArea()

	var displays []display.Display
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		bounds := geometry.Rect{
			X: int(crtcInfo.X), Y: int(crtcInfo.Y),
			Width: int(crtcInfo.Width), Height: int(crtcInfo.Height),
		}

		name := fmt.Sprintf("Monitor%d", i)
		dpi := geometry.BaseDPI
		outputInfo, err := randr.GetOutputInfo(conn, crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			name = string(outputInfo.Name)
			if outputInfo.MmWidth > 0 {
				dpi = int(float64(crtcInfo.Width) * mmPerInch / float64(outputInfo.MmWidth))
				if dpi < geometry.BaseDPI {
					dpi = geometry.BaseDPI
				}
			}
		}

		work := bounds
		if !workArea.Empty() {
			if isect := bounds.Intersect(workArea); !isect.Empty() {
				work = isect
			}
		}

		displays = append(displays, display.Display{
			ID:       i,
			Name:     name,
			Bounds:   bounds,
			WorkArea: work,
			DPI:      dpi,
		})
	}
	return displays, nil
}

// currentWorkArea reads the EWMH work area of the current desktop, a zero
// rect when the window manager does not publish one.
func (p *Platform) currentWorkArea() geometry.Rect {
	workAreas, err := ewmh.WorkareaGet(p.conn.XUtil)
	if err != nil || len(workAreas) == 0 {
		return geometry.Rect{}
	}
	index := 0
	if desktop, err := ewmh.CurrentDesktopGet(p.conn.XUtil); err == nil {
		if int(desktop) >= 0 && int(desktop) < len(workAreas) {
			index = int(desktop)
		}
	}
	wa := workAreas[index]
	return geometry.Rect{
		X: int(wa.X), Y: int(wa.Y),
		Width: int(wa.Width), Height: int(wa.Height),
	}
}
