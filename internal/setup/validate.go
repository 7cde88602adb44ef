package setup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
)

// checkCredentials rejects blank credentials before the radio is used. Any
// other value is left for the meter to judge.
func checkCredentials(id, password string) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(id) == "" {
		errs[ConfID] = ErrorInvalidID
	}
	if strings.TrimSpace(password) == "" {
		errs[ConfPassword] = ErrorInvalidPassword
	}
	return errs
}

// Validator proves the credentials work with the radio at device
type Validator func(ctx context.Context, device, id, password string) error

// RadioConfig configures the radio validator
type RadioConfig struct {
	BaudRate    int
	ReadTimeout time.Duration
	Stack       []skstack.Option
	Tracer      skstack.Tracer
}

// DefaultRadioConfig matches the BP35 family defaults
func DefaultRadioConfig() RadioConfig {
	return RadioConfig{
		BaudRate:    115200,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// openPort is replaced in tests
var openPort = func(device string, opts ...serialport.Option) (serialport.Port, error) {
	return serialport.Open(device, opts...)
}

// NewRadioValidator switches the radio to ASCII mode when needed, then
// joins the meter once and closes the session again.
func NewRadioValidator(cfg RadioConfig) Validator {
	return func(ctx context.Context, device, id, password string) error {
		port, err := openPort(device,
			serialport.WithBaudRate(cfg.BaudRate),
			serialport.WithReadTimeout(cfg.ReadTimeout),
		)
		if err != nil {
			return fmt.Errorf("open %s: %w", device, err)
		}
		defer port.Close()

		changed, err := skstack.ActivateASCIIMode(ctx, port, cfg.Tracer)
		if err != nil {
			return fmt.Errorf("activate ASCII mode: %w", err)
		}
		if changed {
			logging.Infof("setup: %s switched to ASCII mode", device)
		}

		opts := append([]skstack.Option{skstack.WithTracer(cfg.Tracer)}, cfg.Stack...)
		client, err := skstack.New(port, opts...)
		if err != nil {
			return err
		}
		session, err := client.Join(ctx, id, password)
		if err != nil {
			return err
		}
		return session.Close(ctx)
	}
}
