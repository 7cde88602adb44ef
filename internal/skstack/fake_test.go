package skstack

import (
	"bytes"
	"strings"
	"sync"
)

// fakeRadio answers written commands from a script. Each key holds a queue of
// replies; the last reply repeats once the queue is drained. Keys match the
// full command first, then the command name.
type fakeRadio struct {
	mu      sync.Mutex
	script  map[string][]string
	echo    bool
	out     bytes.Buffer
	written []string
}

func newFakeRadio(script map[string][]string) *fakeRadio {
	return &fakeRadio{script: script}
}

func (f *fakeRadio) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, cmd := range strings.FieldsFunc(string(p), func(r rune) bool { return r == '\r' || r == '\n' }) {
		f.written = append(f.written, cmd)
		if f.echo {
			f.out.WriteString(cmd + "\r\n")
		}
		key := cmd
		queue, ok := f.script[key]
		if !ok {
			key = commandName(cmd)
			queue, ok = f.script[key]
		}
		if !ok || len(queue) == 0 {
			continue
		}
		f.out.WriteString(queue[0])
		if len(queue) > 1 {
			f.script[key] = queue[1:]
		}
	}
	return len(p), nil
}

func (f *fakeRadio) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out.Len() == 0 {
		return 0, nil
	}
	return f.out.Read(p)
}

func (f *fakeRadio) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

const (
	testRBID     = "00112233445566778899AABBCCDDEEFF"
	testPassword = "0123456789AB"
	testSender   = "FE80:0000:0000:0000:021D:1290:1234:5678"
	testIPv6     = "FE80:0000:0000:0000:1034:5678:ABCD:EF01"
)

const testPANDesc = "EVENT 20 " + testSender + "\r\n" +
	"EPANDESC\r\n" +
	"  Channel:21\r\n" +
	"  Channel Page:09\r\n" +
	"  Pan ID:8888\r\n" +
	"  Addr:12345678ABCDEF01\r\n" +
	"  LQI:E1\r\n" +
	"  PairID:00AABBCC\r\n"

const testScanDone = "EVENT 22 " + testSender + "\r\n"

// joinScript is a successful pairing with one PAN in range
func joinScript() map[string][]string {
	return map[string][]string{
		"SKRESET":   {"OK\r\n"},
		"SKSREG":    {"OK\r\n"},
		"SKVER":     {"EVER 1.2.10\r\nOK\r\n"},
		"SKSETPWD":  {"OK\r\n"},
		"SKSETRBID": {"OK\r\n"},
		"SKSCAN":    {"OK\r\n" + testPANDesc + testScanDone},
		"SKLL64":    {testIPv6 + "\r\n"},
		"SKJOIN":    {"OK\r\nEVENT 21 " + testSender + " 00\r\nEVENT 02 " + testSender + "\r\nEVENT 25 " + testSender + "\r\n"},
		"SKTERM":    {"OK\r\nEVENT 27 " + testSender + "\r\n"},
	}
}
