package skstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/allbin/broute/internal/logging"
)

// Options tune the handshake timing
type Options struct {
	ScanDuration   int           // initial SKSCAN duration exponent (1-14)
	ScanRetries    int           // scans attempted before ErrScanFailure
	CommandTimeout time.Duration // wait for OK/FAIL after a command
	JoinTimeout    time.Duration // wait for EVENT 24/25 after SKJOIN
	Tracer         Tracer
}

// Option is a functional option for configuring a Client
type Option func(*Options) error

// DefaultOptions returns conservative timings that work for meters a few
// rooms away from the radio.
func DefaultOptions() Options {
	return Options{
		ScanDuration:   6,
		ScanRetries:    3,
		CommandTimeout: 5 * time.Second,
		JoinTimeout:    60 * time.Second,
	}
}

// WithScanDuration sets the initial active scan duration exponent
func WithScanDuration(d int) Option {
	return func(o *Options) error {
		if d < 1 || d > maxScanDuration {
			return fmt.Errorf("scan duration %d out of range 1-%d", d, maxScanDuration)
		}
		o.ScanDuration = d
		return nil
	}
}

// WithScanRetries sets how many active scans are attempted
func WithScanRetries(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return fmt.Errorf("scan retries must be at least 1, got %d", n)
		}
		o.ScanRetries = n
		return nil
	}
}

// WithCommandTimeout sets the per-command reply timeout
func WithCommandTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("command timeout must be positive, got %v", d)
		}
		o.CommandTimeout = d
		return nil
	}
}

// WithJoinTimeout sets how long SKJOIN may take to report a result
func WithJoinTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("join timeout must be positive, got %v", d)
		}
		o.JoinTimeout = d
		return nil
	}
}

// WithTracer installs a line tracer
func WithTracer(t Tracer) Option {
	return func(o *Options) error {
		o.Tracer = t
		return nil
	}
}

// Client speaks SKSTACK-IP over a serial line. It is not safe for concurrent use.
type Client struct {
	w     io.Writer
	lines *lineReader
	opts  Options
	// events read while waiting for a command reply, consumed by waitEvent
	pending []Event
}

// New creates a client on an open serial port
func New(rw io.ReadWriter, opts ...Option) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}
	return &Client{
		w:     rw,
		lines: newLineReader(rw),
		opts:  options,
	}, nil
}

func (c *Client) trace(dir Direction, line string) {
	if c.opts.Tracer != nil {
		c.opts.Tracer(dir, maskSecret(line), time.Now())
	}
}

func (c *Client) send(cmd string) error {
	c.trace(TX, cmd)
	if _, err := io.WriteString(c.w, cmd+"\r\n"); err != nil {
		return fmt.Errorf("write %s: %w", commandName(cmd), err)
	}
	return nil
}

func (c *Client) readLine(ctx context.Context) (string, error) {
	line, err := c.lines.readLine(ctx)
	if err != nil {
		return "", err
	}
	c.trace(RX, line)
	return line, nil
}

// timeoutErr turns a deadline from a derived context into ErrTimeout while
// leaving caller cancellation untouched.
func timeoutErr(parent context.Context, what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: %s", ErrTimeout, what)
	}
	return err
}

func commandName(cmd string) string {
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		return cmd[:i]
	}
	return cmd
}

// Command sends a raw command and returns the lines preceding OK. Events that
// arrive meanwhile are queued for later waits. A FAIL reply becomes *CommandError.
func (c *Client) Command(ctx context.Context, cmd string) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()

	if err := c.send(cmd); err != nil {
		return nil, err
	}

	var body []string
	for {
		line, err := c.readLine(cctx)
		if err != nil {
			return nil, timeoutErr(ctx, commandName(cmd), err)
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == cmd:
			// echo
		case trimmed == "OK" || strings.HasPrefix(trimmed, "OK "):
			return body, nil
		case strings.HasPrefix(trimmed, "FAIL "):
			return nil, &CommandError{Command: commandName(cmd), Code: strings.TrimPrefix(trimmed, "FAIL ")}
		case strings.HasPrefix(trimmed, "EVENT "):
			if ev, err := parseEvent(trimmed); err == nil {
				c.pending = append(c.pending, ev)
			}
		default:
			body = append(body, line)
		}
	}
}

// Version returns the firmware version reported by SKVER
func (c *Client) Version(ctx context.Context) (string, error) {
	body, err := c.Command(ctx, "SKVER")
	if err != nil {
		return "", err
	}
	for _, line := range body {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "EVER "); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: SKVER returned %q", ErrUnexpectedResponse, body)
}

// discardInput drops buffered radio output so stale replies cannot answer
// the next command
func (c *Client) discardInput() {
	if n := len(c.lines.buf); n > 0 {
		logging.Debugf("skstack: discarding %d stale bytes", n)
		c.lines.buf = c.lines.buf[:0]
	}
	if f, ok := c.w.(flusher); ok {
		if err := f.FlushInput(); err != nil {
			logging.Warnf("skstack: flush input: %v", err)
		}
	}
}

// reset brings the stack into a known state and disables echo
func (c *Client) reset(ctx context.Context) error {
	c.discardInput()
	if _, err := c.Command(ctx, "SKRESET"); err != nil {
		return err
	}
	if _, err := c.Command(ctx, "SKSREG SFE 0"); err != nil {
		return err
	}
	c.pending = nil
	return nil
}

// setCredentials stores the route-B password and ID in the stack
func (c *Client) setCredentials(ctx context.Context, rbid, password string) error {
	if _, err := c.Command(ctx, fmt.Sprintf("SKSETPWD %X %s", len(password), password)); err != nil {
		return err
	}
	if _, err := c.Command(ctx, "SKSETRBID "+rbid); err != nil {
		return err
	}
	return nil
}

// linkLocal converts a MAC address into the IPv6 link-local address. SKLL64
// answers with the bare address and no OK.
func (c *Client) linkLocal(ctx context.Context, addr string) (string, error) {
	cmd := "SKLL64 " + addr
	cctx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()

	if err := c.send(cmd); err != nil {
		return "", err
	}
	for {
		line, err := c.readLine(cctx)
		if err != nil {
			return "", timeoutErr(ctx, "SKLL64", err)
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == cmd:
		case strings.HasPrefix(trimmed, "FAIL "):
			return "", &CommandError{Command: "SKLL64", Code: strings.TrimPrefix(trimmed, "FAIL ")}
		case strings.Count(trimmed, ":") == 7:
			return trimmed, nil
		default:
			logging.Debugf("skstack: ignoring %q while waiting for SKLL64", trimmed)
		}
	}
}
