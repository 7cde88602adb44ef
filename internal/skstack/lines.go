package skstack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Direction of a traced line
type Direction int

const (
	TX Direction = iota
	RX
)

func (d Direction) String() string {
	if d == TX {
		return "TX"
	}
	return "RX"
}

// Tracer receives every line sent to or read from the radio. Secrets are
// masked before the tracer sees them.
type Tracer func(dir Direction, line string, at time.Time)

// idlePause bounds spinning on readers that return 0, nil without blocking
const idlePause = 10 * time.Millisecond

// maxLineLength bounds a line; EPANDESC and ERXUDP lines stay far below it
const maxLineLength = 4096

// lineReader splits radio output on CR or LF. SKSTACK terminates replies with
// CRLF, while the ROPT mode reply ends with a bare CR.
type lineReader struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r, chunk: make([]byte, 256)}
}

// readLine returns the next non-empty line. It honours ctx between reads, so
// the underlying reader must return periodically (VTIME on a real port).
func (l *lineReader) readLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexAny(l.buf, "\r\n"); i >= 0 {
			line := string(l.buf[:i])
			l.buf = l.buf[i+1:]
			if strings.TrimSpace(line) == "" {
				continue
			}
			return strings.TrimRight(line, " "), nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		if len(l.buf) > maxLineLength {
			n := len(l.buf)
			l.buf = l.buf[:0]
			return "", fmt.Errorf("%w: %d bytes without line end", ErrUnexpectedResponse, n)
		}

		n, err := l.r.Read(l.chunk)
		if n > 0 {
			l.buf = append(l.buf, l.chunk[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}

		select {
		case <-ctx.Done():
		case <-time.After(idlePause):
		}
	}
}

// maskSecret hides the password argument of SKSETPWD
func maskSecret(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 3 && fields[0] == "SKSETPWD" {
		return fields[0] + " " + fields[1] + " " + strings.Repeat("*", len(fields[2]))
	}
	return line
}

// Listen reports every line read from r to tracer until ctx is done. EVENT
// lines are also passed to onEvent when it is set.
func Listen(ctx context.Context, r io.Reader, tracer Tracer, onEvent func(Event)) error {
	lines := newLineReader(r)
	for {
		line, err := lines.readLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if tracer != nil {
			tracer(RX, line, time.Now())
		}
		if onEvent == nil {
			continue
		}
		if ev, err := parseEvent(strings.TrimSpace(line)); err == nil {
			onEvent(ev)
		}
	}
}
