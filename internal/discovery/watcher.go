// Package discovery watches for USB serial radios being plugged in.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/serialport"
)

// Matcher selects devices by USB vendor and product ID. An empty PID matches
// every product of the vendor.
type Matcher struct {
	VID string
	PID string
}

// ParseMatcher parses "vid:pid" or "vid"
func ParseMatcher(s string) (Matcher, error) {
	vid, pid, _ := strings.Cut(strings.TrimSpace(s), ":")
	if !isHex4(vid) || (pid != "" && !isHex4(pid)) {
		return Matcher{}, fmt.Errorf("invalid USB matcher %q, want vid:pid in hex", s)
	}
	return Matcher{VID: strings.ToUpper(vid), PID: strings.ToUpper(pid)}, nil
}

func isHex4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// Matches reports whether info belongs to this matcher
func (m Matcher) Matches(info UsbServiceInfo) bool {
	if !strings.EqualFold(m.VID, info.VID) {
		return false
	}
	return m.PID == "" || strings.EqualFold(m.PID, info.PID)
}

// Watcher polls the serial ports and reports USB devices that appear
type Watcher struct {
	interval    time.Duration
	matchers    []Matcher
	listDevices func() ([]serialport.Device, error)
	known       map[string]bool
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithMatchers limits reports to matching devices
func WithMatchers(m ...Matcher) WatcherOption {
	return func(w *Watcher) {
		w.matchers = append(w.matchers, m...)
	}
}

// WithDeviceLister replaces the port enumerator
func WithDeviceLister(fn func() ([]serialport.Device, error)) WatcherOption {
	return func(w *Watcher) {
		w.listDevices = fn
	}
}

// NewWatcher creates a watcher polling every 2s by default
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		interval:    2 * time.Second,
		listDevices: serialport.ListDevices,
		known:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) matches(info UsbServiceInfo) bool {
	if len(w.matchers) == 0 {
		return true
	}
	for _, m := range w.matchers {
		if m.Matches(info) {
			return true
		}
	}
	return false
}

// Poll enumerates once and returns devices not seen before. Devices that
// disappear are forgotten, so plugging them back in reports them again.
func (w *Watcher) Poll() ([]UsbServiceInfo, error) {
	devices, err := w.listDevices()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(devices))
	var found []UsbServiceInfo
	for _, d := range devices {
		if d.Info == nil || !d.Info.IsUSB() {
			continue
		}
		present[d.Path] = true
		if w.known[d.Path] {
			continue
		}
		w.known[d.Path] = true

		info := InfoFromDevice(d)
		if !w.matches(info) {
			logging.Debugf("discovery: ignoring %s (%s:%s)", info.Device, info.VID, info.PID)
			continue
		}
		found = append(found, info)
	}
	for path := range w.known {
		if !present[path] {
			logging.Debugf("discovery: %s removed", path)
			delete(w.known, path)
		}
	}
	return found, nil
}

// Run polls until ctx is done, calling fn for every new device. Devices
// present at start are reported on the first poll.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, UsbServiceInfo)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		found, err := w.Poll()
		if err != nil {
			logging.Warnf("discovery: listing ports failed: %v", err)
		}
		for _, info := range found {
			logging.Infof("discovery: found %s (%s:%s)", info.Device, info.VID, info.PID)
			fn(ctx, info)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
