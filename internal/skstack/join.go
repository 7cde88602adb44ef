package skstack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/broute/internal/logging"
)

// terminateTimeout bounds the wait for the stack to confirm SKTERM
const terminateTimeout = 10 * time.Second

// Session is an authenticated PANA session with the meter
type Session struct {
	client *Client
	PAN    PAN
	IPv6   string
	closed bool
}

// Join authenticates against the meter with a route-B ID and password.
// ErrScanFailure means no meter answered, ErrJoinFailure that the credentials
// were rejected.
func (c *Client) Join(ctx context.Context, rbid, password string) (*Session, error) {
	if err := c.reset(ctx); err != nil {
		return nil, fmt.Errorf("reset stack: %w", err)
	}

	version, err := c.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	logging.Debugf("skstack: firmware %s", version)

	if err := c.setCredentials(ctx, rbid, password); err != nil {
		return nil, fmt.Errorf("set credentials: %w", err)
	}

	pan, err := c.Scan(ctx)
	if err != nil {
		return nil, err
	}

	ipv6, err := c.linkLocal(ctx, pan.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve link-local address: %w", err)
	}

	if _, err := c.Command(ctx, "SKSREG S2 "+pan.Channel); err != nil {
		return nil, fmt.Errorf("set channel: %w", err)
	}
	if _, err := c.Command(ctx, "SKSREG S3 "+pan.PanID); err != nil {
		return nil, fmt.Errorf("set PAN ID: %w", err)
	}

	c.pending = nil
	if _, err := c.Command(ctx, "SKJOIN "+ipv6); err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	ev, err := c.waitEvent(ctx, c.opts.JoinTimeout, EventJoinOK, EventJoinFailed)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrJoinFailure, err)
		}
		return nil, err
	}
	if ev.Code == EventJoinFailed {
		return nil, ErrJoinFailure
	}

	logging.Infof("skstack: joined PAN %s as %s", pan.PanID, ipv6)
	return &Session{client: c, PAN: *pan, IPv6: ipv6}, nil
}

// Close terminates the PANA session. A stack that reports no session (ER10)
// counts as closed.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	c := s.client
	c.pending = nil
	if _, err := c.Command(ctx, "SKTERM"); err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == "ER10" {
			return nil
		}
		return fmt.Errorf("terminate session: %w", err)
	}

	if _, err := c.waitEvent(ctx, terminateTimeout, EventSessionEnd, EventSessionTimed); err != nil {
		if errors.Is(err, ErrTimeout) {
			logging.Warnf("skstack: meter did not confirm session end")
			return nil
		}
		return err
	}
	return nil
}
