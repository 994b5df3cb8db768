package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/softxhci/hid"
	"github.com/ardnew/softxhci/internal/xhcisim"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/pkg/prof"
	"github.com/ardnew/softxhci/usb"
	"github.com/ardnew/softxhci/usb/usbid"
	"github.com/ardnew/softxhci/xhci"
)

type simConfig struct {
	ports        int
	keyboardPort int
	mousePort    int
	mouseSpeed   string
	text         string
	side         int
	interval     time.Duration
	usbIDs       string

	cpuProfile  string
	heapProfile string
	pprofAddr   string
}

func simulateCommand() *cli.Command {
	var cfg simConfig
	return &cli.Command{
		Name:  "simulate",
		Usage: "run the driver against an emulated controller with a keyboard and mouse",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "ports", Value: 4, Destination: &cfg.ports, Usage: "root hub ports"},
			&cli.IntFlag{Name: "keyboard-port", Value: 1, Destination: &cfg.keyboardPort, Usage: "port the keyboard is plugged into"},
			&cli.IntFlag{Name: "mouse-port", Value: 2, Destination: &cfg.mousePort, Usage: "port the mouse is plugged into"},
			&cli.StringFlag{Name: "mouse-speed", Value: "full", Destination: &cfg.mouseSpeed, Usage: "mouse speed (low, full, high)"},
			&cli.StringFlag{Name: "text", Value: "Hello, xHCI!\n", Destination: &cfg.text, Usage: "text typed on the keyboard"},
			&cli.IntFlag{Name: "side", Value: 200, Destination: &cfg.side, Usage: "side of the square traced by the mouse"},
			&cli.DurationFlag{Name: "interval", Value: 10 * time.Millisecond, Destination: &cfg.interval, Usage: "delay between scripted inputs"},
			&cli.StringFlag{
				Name:        "usb-ids",
				EnvVars:     []string{"XHCICTL_USB_IDS"},
				Destination: &cfg.usbIDs,
				Usage:       "path to usb.ids (default: system locations)",
			},
			&cli.StringFlag{Name: "cpu-profile", Destination: &cfg.cpuProfile, Usage: "write a CPU profile (profile builds only)"},
			&cli.StringFlag{Name: "heap-profile", Destination: &cfg.heapProfile, Usage: "write a heap profile on exit (profile builds only)"},
			&cli.StringFlag{
				Name:        "pprof-addr",
				EnvVars:     []string{"XHCICTL_PPROF_ADDR"},
				Destination: &cfg.pprofAddr,
				Usage:       "serve /debug/pprof/ on this address while running (profile builds only)",
			},
		},
		Action: func(c *cli.Context) error {
			return simulate(c.Context, cfg, c.App.Writer)
		},
	}
}

func parseSpeed(s string) (usb.Speed, error) {
	switch strings.ToLower(s) {
	case "low":
		return usb.SpeedLow, nil
	case "full":
		return usb.SpeedFull, nil
	case "high":
		return usb.SpeedHigh, nil
	}
	return usb.SpeedUnknown, fmt.Errorf("unknown speed %q", s)
}

func simulate(ctx context.Context, cfg simConfig, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := newRunner(cfg, w)
	if err != nil {
		return err
	}

	if cfg.cpuProfile != "" {
		if err := prof.StartCPU(cfg.cpuProfile); err != nil {
			return err
		}
		defer func() {
			if err := prof.StopCPU(); err != nil {
				pkg.LogWarn(pkg.ComponentTool, "cpu profile", "error", err)
			}
		}()
	}

	steps := make(chan step)
	eg, ctx := errgroup.WithContext(ctx)
	running, finished := context.WithCancel(ctx)
	defer finished()

	eg.Go(func() error {
		return feed(ctx, script(cfg), cfg.interval, steps)
	})
	eg.Go(func() error {
		defer finished()
		return r.loop(ctx, steps)
	})
	if cfg.pprofAddr != "" {
		eg.Go(func() error {
			return prof.Serve(running, cfg.pprofAddr)
		})
	}

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	r.summarize()

	if cfg.heapProfile != "" {
		if herr := prof.WriteHeap(cfg.heapProfile); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

// =============================================================================
// Driver loop
// =============================================================================

// runner owns the emulator and the driver. Only the loop goroutine touches
// either of them.
type runner struct {
	cfg   simConfig
	w     io.Writer
	sim   *xhcisim.Controller
	ctl   *xhci.Controller
	ids   *usbid.Database
	mouse usb.Speed

	typed  strings.Builder
	x, y   int
	clicks int
}

func newRunner(cfg simConfig, w io.Writer) (*runner, error) {
	speed, err := parseSpeed(cfg.mouseSpeed)
	if err != nil {
		return nil, err
	}
	var paths []string
	if cfg.usbIDs != "" {
		paths = []string{cfg.usbIDs}
	}
	r := &runner{
		cfg:   cfg,
		w:     w,
		sim:   xhcisim.New(xhcisim.WithPorts(cfg.ports)),
		ids:   usbid.New(paths...),
		mouse: speed,
	}
	if err := r.ids.Load(); err != nil {
		pkg.LogWarn(pkg.ComponentTool, "usb.ids unavailable, showing raw IDs", "error", err)
	}
	r.ctl = xhci.New(r.sim.Base(), xhci.WithBus(r.sim), xhci.WithArena(r.sim.Arena()))
	r.ctl.Keyboard().SetObserver(hid.KeyboardFunc(r.onKey))
	r.ctl.Mouse().SetObserver(hid.MouseFunc(r.onMouse))
	return r, nil
}

func (r *runner) loop(ctx context.Context, steps <-chan step) error {
	if err := r.ctl.Initialize(); err != nil {
		return err
	}
	if err := r.ctl.Run(); err != nil {
		return err
	}
	r.ctl.ConfigurePorts()
	pkg.LogInfo(pkg.ComponentTool, "controller running",
		"ports", r.ctl.MaxPorts(), "slots", r.ctl.MaxSlots())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-steps:
			if !ok {
				return nil
			}
			if err := r.apply(s); err != nil {
				pkg.LogErr(pkg.ComponentTool, "step failed", err, "step", s.kind.String(), "port", s.port)
				continue
			}
			r.drain()
			if s.kind == stepConnect {
				r.describe(s.port)
			}
		}
	}
}

func (r *runner) apply(s step) error {
	switch s.kind {
	case stepConnect:
		d := xhcisim.NewKeyboard(usb.SpeedLow)
		if s.device == "mouse" {
			d = xhcisim.NewMouse(r.mouse)
		}
		return r.sim.Connect(s.port, d)
	case stepDisconnect:
		return r.sim.Disconnect(s.port)
	default:
		return r.sim.SendReport(s.port, s.report)
	}
}

// drain processes every pending event.
func (r *runner) drain() {
	for r.ctl.HasFront() {
		if err := r.ctl.ProcessEvent(); err != nil {
			pkg.LogErr(pkg.ComponentTool, "event failed", err)
		}
	}
}

func (r *runner) describe(n int) {
	p, err := r.ctl.PortAt(n)
	if err != nil || !p.Configured() {
		fmt.Fprintf(r.w, "port %d: not configured\n", n)
		return
	}
	s, err := r.ctl.Slot(p.Slot())
	if err != nil {
		return
	}
	d := s.Device()
	kind := "no class driver"
	if s.Driver() != nil {
		if iface, _, ok := s.Configuration().BootInterface(); ok {
			id := iface.Descriptor
			kind = r.className(id.InterfaceClass, id.InterfaceSubClass, id.InterfaceProtocol)
		}
	}
	fmt.Fprintf(r.w, "port %d: slot %d %s %s (%s)\n", n, s.ID(), s.Speed(), r.ids.Describe(d.VendorID, d.ProductID), kind)
}

func (r *runner) className(class, subclass, protocol uint8) string {
	if name := r.ids.Class(class, subclass, protocol); name != "" {
		return name
	}
	return fmt.Sprintf("class %02x:%02x:%02x", class, subclass, protocol)
}

func (r *runner) onKey(modifier, keycode uint8, pressed bool) {
	pkg.LogDebug(pkg.ComponentTool, "key", "modifier", modifier, "keycode", keycode, "pressed", pressed)
	if !pressed {
		return
	}
	if ch := hid.ASCII(modifier, keycode); ch != 0 {
		r.typed.WriteByte(ch)
	}
}

func (r *runner) onMouse(buttons uint8, dx, dy int8) {
	pkg.LogDebug(pkg.ComponentTool, "mouse", "buttons", buttons, "dx", dx, "dy", dy)
	r.x += int(dx)
	r.y += int(dy)
	if buttons != 0 {
		r.clicks++
	}
}

func (r *runner) summarize() {
	fmt.Fprintf(r.w, "typed: %q\n", r.typed.String())
	fmt.Fprintf(r.w, "pointer: (%d, %d), %d clicks\n", r.x, r.y, r.clicks)
	fmt.Fprintf(r.w, "enabled slots: %d, dropped events: %d\n", r.sim.EnabledSlots(), r.sim.Dropped())
}
