package setup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
)

// scriptedPort answers SKSTACK commands by command name. With lateReplies
// set, FlushInput leaves pending output in place, as if it arrived after the
// flush.
type scriptedPort struct {
	mu          sync.Mutex
	replies     map[string]string
	out         bytes.Buffer
	sent        []string
	closed      bool
	flushed     int
	lateReplies bool
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cmd := range strings.FieldsFunc(string(b), func(r rune) bool { return r == '\r' || r == '\n' }) {
		p.sent = append(p.sent, cmd)
		name, _, _ := strings.Cut(cmd, " ")
		p.out.WriteString(p.replies[name])
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out.Len() == 0 {
		return 0, nil
	}
	return p.out.Read(b)
}

func (p *scriptedPort) ReadContext(_ context.Context, b []byte) (int, error) { return p.Read(b) }
func (p *scriptedPort) WriteContext(_ context.Context, b []byte) (int, error) {
	return p.Write(b)
}
func (p *scriptedPort) Drain() error       { return nil }
func (p *scriptedPort) FlushOutput() error { return nil }
func (p *scriptedPort) Path() string       { return "/dev/ttyUSB0" }

func (p *scriptedPort) FlushInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed++
	if !p.lateReplies {
		p.out.Reset()
	}
	return nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

const sender = "FE80:0000:0000:0000:021D:1290:1234:5678"

func radioReplies() map[string]string {
	return map[string]string{
		"ROPT":      "ROPT\r\nOK 00\r",
		"WOPT":      "WOPT 01\r\nOK\r",
		"SKRESET":   "OK\r\n",
		"SKSREG":    "OK\r\n",
		"SKVER":     "EVER 1.5.2\r\nOK\r\n",
		"SKSETPWD":  "OK\r\n",
		"SKSETRBID": "OK\r\n",
		"SKSCAN": "OK\r\nEVENT 20 " + sender + "\r\nEPANDESC\r\n  Channel:33\r\n  Channel Page:09\r\n" +
			"  Pan ID:1234\r\n  Addr:001D129012345678\r\n  LQI:80\r\n  PairID:00112233\r\nEVENT 22 " + sender + "\r\n",
		"SKLL64": "FE80:0000:0000:0000:021D:1290:1234:5678\r\n",
		"SKJOIN": "OK\r\nEVENT 25 " + sender + "\r\n",
		"SKTERM": "OK\r\nEVENT 27 " + sender + "\r\n",
	}
}

func withOpenPort(t *testing.T, port *scriptedPort, openErr error) *[]string {
	t.Helper()
	var opened []string
	orig := openPort
	openPort = func(device string, opts ...serialport.Option) (serialport.Port, error) {
		opened = append(opened, device)
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	t.Cleanup(func() { openPort = orig })
	return &opened
}

func TestRadioValidator(t *testing.T) {
	port := &scriptedPort{replies: radioReplies()}
	opened := withOpenPort(t, port, nil)

	var (
		mu     sync.Mutex
		traced []string
	)
	cfg := DefaultRadioConfig()
	cfg.Tracer = func(dir skstack.Direction, line string, _ time.Time) {
		mu.Lock()
		defer mu.Unlock()
		traced = append(traced, dir.String()+" "+line)
	}

	validate := NewRadioValidator(cfg)
	err := validate(context.Background(), "/dev/ttyUSB0", userInput[ConfID], userInput[ConfPassword])
	if err != nil {
		t.Fatalf("validate() error: %v", err)
	}

	if len(*opened) != 1 || (*opened)[0] != "/dev/ttyUSB0" {
		t.Errorf("opened %v, want /dev/ttyUSB0 once", *opened)
	}
	if !port.closed {
		t.Error("port left open")
	}
	if port.flushed == 0 {
		t.Error("input not flushed after ASCII mode activation")
	}
	if len(port.sent) < 3 || port.sent[0] != "ROPT" || port.sent[1] != "WOPT 01" || port.sent[2] != "SKRESET" {
		t.Errorf("sent = %q, want ROPT, WOPT 01, SKRESET first", port.sent)
	}
	if port.sent[len(port.sent)-1] != "SKTERM" {
		t.Errorf("last command = %q, want SKTERM", port.sent[len(port.sent)-1])
	}

	mu.Lock()
	defer mu.Unlock()
	for _, line := range traced {
		if strings.Contains(line, userInput[ConfPassword]) {
			t.Errorf("password leaked to tracer: %q", line)
		}
	}
}

func TestRadioValidatorLateWOPTReply(t *testing.T) {
	port := &scriptedPort{replies: radioReplies(), lateReplies: true}
	withOpenPort(t, port, nil)

	err := NewRadioValidator(DefaultRadioConfig())(context.Background(), "/dev/ttyUSB0", userInput[ConfID], userInput[ConfPassword])
	if err != nil {
		t.Fatalf("validate() error: %v (errorKey %q)", err, errorKey(err))
	}
	if port.sent[1] != "WOPT 01" {
		t.Errorf("sent = %q, want WOPT 01 second", port.sent)
	}
}

func TestRadioValidatorJoinFailure(t *testing.T) {
	replies := radioReplies()
	replies["SKJOIN"] = "OK\r\nEVENT 24 " + sender + "\r\n"
	port := &scriptedPort{replies: replies}
	withOpenPort(t, port, nil)

	err := NewRadioValidator(DefaultRadioConfig())(context.Background(), "/dev/ttyUSB0", userInput[ConfID], userInput[ConfPassword])
	if !errors.Is(err, skstack.ErrJoinFailure) {
		t.Errorf("validate() error = %v, want ErrJoinFailure", err)
	}
	if errorKey(err) != ErrorInvalidAuth {
		t.Errorf("errorKey = %q, want %q", errorKey(err), ErrorInvalidAuth)
	}
	if !port.closed {
		t.Error("port left open after failure")
	}
}

func TestRadioValidatorOpenError(t *testing.T) {
	withOpenPort(t, nil, serialport.ErrDeviceInUse)

	err := NewRadioValidator(DefaultRadioConfig())(context.Background(), "/dev/ttyUSB0", userInput[ConfID], userInput[ConfPassword])
	if !errors.Is(err, serialport.ErrDeviceInUse) {
		t.Errorf("validate() error = %v, want ErrDeviceInUse", err)
	}
	if errorKey(err) != ErrorUnknown {
		t.Errorf("errorKey = %q, want %q", errorKey(err), ErrorUnknown)
	}
}
