package skstack

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/allbin/broute/internal/logging"
)

// asciiTimeout bounds the ROPT exchange
const asciiTimeout = 5 * time.Second

// flusher is implemented by serialport.Port
type flusher interface {
	FlushInput() error
}

// drainer is implemented by serialport.Port
type drainer interface {
	Drain() error
}

// ActivateASCIIMode switches the ERXUDP payload format of the radio to ASCII.
// It reports whether the setting was changed; an already active mode is left
// alone. WOPT writes to flash, so it is only sent when needed.
func ActivateASCIIMode(ctx context.Context, rw io.ReadWriter, tracer Tracer) (bool, error) {
	actx, cancel := context.WithTimeout(ctx, asciiTimeout)
	defer cancel()

	lines := newLineReader(rw)
	send := func(cmd string) error {
		if tracer != nil {
			tracer(TX, cmd, time.Now())
		}
		if _, err := io.WriteString(rw, cmd+"\r"); err != nil {
			return fmt.Errorf("write %s: %w", cmd, err)
		}
		if d, ok := rw.(drainer); ok {
			return d.Drain()
		}
		return nil
	}
	read := func(cmd string) (string, error) {
		line, err := lines.readLine(actx)
		if err != nil {
			return "", timeoutErr(ctx, cmd, err)
		}
		if tracer != nil {
			tracer(RX, line, time.Now())
		}
		return strings.TrimSpace(line), nil
	}

	if err := send("ROPT"); err != nil {
		return false, err
	}

	// The echo line precedes the reply.
	reply, err := read("ROPT")
	if err != nil {
		return false, err
	}
	if reply == "ROPT" {
		if reply, err = read("ROPT"); err != nil {
			return false, err
		}
	}

	changed := false
	if reply == "OK 00" {
		logging.Infof("skstack: switching radio to ASCII mode")
		if err := send("WOPT 01"); err != nil {
			return false, err
		}
		// The flush below must not race the WOPT reply.
		if err := awaitOK(func() (string, error) { return read("WOPT") }, "WOPT 01"); err != nil {
			return false, err
		}
		changed = true
	} else {
		logging.Debugf("skstack: ASCII mode already active (%s)", reply)
	}

	if f, ok := rw.(flusher); ok {
		if err := f.FlushInput(); err != nil {
			return changed, fmt.Errorf("flush input: %w", err)
		}
	}
	return changed, nil
}

// awaitOK reads lines until the OK or FAIL closing cmd, skipping its echo
func awaitOK(read func() (string, error), cmd string) error {
	for {
		line, err := read()
		if err != nil {
			return err
		}
		switch {
		case line == "OK" || strings.HasPrefix(line, "OK "):
			return nil
		case strings.HasPrefix(line, "FAIL "):
			return &CommandError{Command: commandName(cmd), Code: strings.TrimPrefix(line, "FAIL ")}
		}
	}
}
