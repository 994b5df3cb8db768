package main

import (
	"context"
	"time"

	"github.com/ardnew/softxhci/hid"
)

// stepKind is what a scripted step does to the emulator.
type stepKind uint8

const (
	stepConnect stepKind = iota
	stepDisconnect
	stepReport
)

func (k stepKind) String() string {
	switch k {
	case stepConnect:
		return "connect"
	case stepDisconnect:
		return "disconnect"
	default:
		return "report"
	}
}

// step is one input handed from the feeder to the driver loop.
type step struct {
	kind   stepKind
	port   int
	device string // "keyboard" or "mouse" for stepConnect
	report []byte
}

// keystroke is the boot report modifier and keycode producing a character.
type keystroke struct {
	modifier, keycode uint8
}

// keystrokes inverts hid.ASCII, preferring unshifted keys and the lowest
// keycode for characters that several keys produce.
var keystrokes = func() map[byte]keystroke {
	m := make(map[byte]keystroke)
	for _, mod := range []uint8{0, hid.ModLeftShift} {
		for code := 0xFF; code > hid.KeyNone; code-- {
			ch := hid.ASCII(mod, uint8(code))
			if ch == 0 {
				continue
			}
			if prev, ok := m[ch]; ok && prev.modifier == 0 && mod != 0 {
				continue
			}
			m[ch] = keystroke{modifier: mod, keycode: uint8(code)}
		}
	}
	return m
}()

// typeReports returns press and release boot keyboard reports for text.
// Characters with no key are skipped.
func typeReports(text string) [][]byte {
	var out [][]byte
	for i := 0; i < len(text); i++ {
		ks, ok := keystrokes[text[i]]
		if !ok {
			continue
		}
		press := make([]byte, hid.KeyboardReportSize)
		press[0] = ks.modifier
		press[2] = ks.keycode
		out = append(out, press, make([]byte, hid.KeyboardReportSize))
	}
	return out
}

// squareReports moves the pointer around a square with the given side,
// in steps of at most 127 counts.
func squareReports(side int) [][]byte {
	var out [][]byte
	dirs := [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	for _, d := range dirs {
		for left := side; left > 0; {
			n := min(left, 127)
			left -= n
			out = append(out, []byte{0, byte(int8(d[0] * n)), byte(int8(d[1] * n))})
		}
	}
	return out
}

// script builds the input sequence for a simulation run.
func script(cfg simConfig) []step {
	steps := []step{
		{kind: stepConnect, port: cfg.keyboardPort, device: "keyboard"},
		{kind: stepConnect, port: cfg.mousePort, device: "mouse"},
	}
	for _, r := range typeReports(cfg.text) {
		steps = append(steps, step{kind: stepReport, port: cfg.keyboardPort, report: r})
	}
	for _, r := range squareReports(cfg.side) {
		steps = append(steps, step{kind: stepReport, port: cfg.mousePort, report: r})
	}
	return append(steps,
		step{kind: stepDisconnect, port: cfg.keyboardPort},
		step{kind: stepDisconnect, port: cfg.mousePort})
}

// feed sends steps to out, one per interval, and closes out when done.
func feed(ctx context.Context, steps []step, interval time.Duration, out chan<- step) error {
	defer close(out)

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for _, s := range steps {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- s:
		}
	}
	return nil
}
