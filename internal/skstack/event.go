package skstack

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event codes reported by the stack
const (
	EventBeacon       = "20"
	EventScanDone     = "22"
	EventJoinFailed   = "24"
	EventJoinOK       = "25"
	EventSessionEnd   = "27"
	EventSessionTimed = "28"
)

// Event is an asynchronous EVENT line: EVENT <code> <sender> [param]
type Event struct {
	Code   string
	Sender string
	Param  string
}

func parseEvent(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "EVENT" {
		return Event{}, fmt.Errorf("%w: %q is not an event", ErrUnexpectedResponse, line)
	}
	ev := Event{Code: fields[1], Sender: fields[2]}
	if len(fields) > 3 {
		ev.Param = fields[3]
	}
	return ev, nil
}

// waitEvent blocks until one of codes arrives, checking events queued during
// earlier commands first.
func (c *Client) waitEvent(ctx context.Context, timeout time.Duration, codes ...string) (Event, error) {
	for i, ev := range c.pending {
		if slices.Contains(codes, ev.Code) {
			c.pending = slices.Delete(c.pending, i, i+1)
			return ev, nil
		}
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		line, err := c.readLine(wctx)
		if err != nil {
			return Event{}, timeoutErr(ctx, "EVENT "+strings.Join(codes, "/"), err)
		}
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "EVENT ") {
			continue
		}
		ev, err := parseEvent(trimmed)
		if err != nil {
			continue
		}
		if slices.Contains(codes, ev.Code) {
			return ev, nil
		}
	}
}
