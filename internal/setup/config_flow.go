package setup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/allbin/broute/internal/discovery"
	"github.com/allbin/broute/internal/flow"
	"github.com/allbin/broute/internal/logging"
	"github.com/allbin/broute/internal/serialport"
	"github.com/allbin/broute/internal/skstack"
)

// DeviceLister enumerates candidate serial ports
type DeviceLister func() ([]serialport.Device, error)

// Option configures the flow handler
type Option func(*ConfigFlow)

// WithValidator replaces the radio validator
func WithValidator(v Validator) Option {
	return func(c *ConfigFlow) { c.validate = v }
}

// WithDeviceLister replaces the port enumerator
func WithDeviceLister(l DeviceLister) Option {
	return func(c *ConfigFlow) { c.listDevices = l }
}

// WithDeviceResolver replaces the mapping of device nodes to stable paths
func WithDeviceResolver(r func(string) string) Option {
	return func(c *ConfigFlow) { c.resolveDevice = r }
}

// ConfigFlow is the handler of one B-route flow
type ConfigFlow struct {
	flow          *flow.Flow
	validate      Validator
	listDevices   DeviceLister
	resolveDevice func(string) string

	// serialises radio access per flow
	mu sync.Mutex
}

// Factory returns the flow factory to register under Domain
func Factory(opts ...Option) flow.Factory {
	return func(f *flow.Flow) flow.Handler {
		c := &ConfigFlow{
			flow:          f,
			validate:      NewRadioValidator(DefaultRadioConfig()),
			listDevices:   serialport.ListDevices,
			resolveDevice: serialport.SerialByID,
		}
		for _, opt := range opts {
			opt(c)
		}
		return c
	}
}

func (c *ConfigFlow) Version() int { return Version }

// Step dispatches flow steps
func (c *ConfigFlow) Step(ctx context.Context, stepID string, input map[string]string) (*flow.Result, error) {
	switch stepID {
	case flow.SourceUser:
		return c.StepUser(ctx, input)
	case flow.SourceUSB:
		return c.StepUSB(ctx, discovery.InfoFromData(input))
	default:
		return nil, fmt.Errorf("%w: %s", flow.ErrUnknownStep, stepID)
	}
}

// Normalize maps a submitted device node such as /dev/ttyUSB0 onto the
// stable path the form offers.
func (c *ConfigFlow) Normalize(_ string, input map[string]string) map[string]string {
	out := make(map[string]string, len(input))
	for k, v := range input {
		out[k] = v
	}
	if d := out[ConfDevice]; d != "" {
		out[ConfDevice] = c.resolveDevice(d)
	}
	return out
}

// GetUSBDevices maps the stable path of every port to its display name
func (c *ConfigFlow) GetUSBDevices() ([]flow.Option, error) {
	devices, err := c.listDevices()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	options := make([]flow.Option, 0, len(devices))
	for _, d := range devices {
		options = append(options, flow.Option{Value: d.Path, Label: d.Name})
	}
	return options, nil
}

// StepUser validates submitted credentials, or shows the form when there is
// nothing to validate yet.
func (c *ConfigFlow) StepUser(ctx context.Context, input map[string]string) (*flow.Result, error) {
	errs := map[string]string{}
	input = c.Normalize(flow.SourceUser, input)

	id, hasID := input[ConfID]
	password, hasPassword := input[ConfPassword]
	if hasID && hasPassword {
		errs = checkCredentials(id, password)
		if len(errs) == 0 {
			if err := c.runValidator(ctx, input[ConfDevice], id, password); err != nil {
				errs["base"] = errorKey(err)
			}
		}
		if len(errs) == 0 {
			if err := c.flow.SetUniqueID(ctx, id, false); err != nil {
				return nil, err
			}
			if err := c.flow.AbortIfUniqueIDConfigured(ctx); err != nil {
				return nil, err
			}
			return c.flow.CreateEntry(EntryTitle, map[string]string{
				ConfDevice:   input[ConfDevice],
				ConfID:       id,
				ConfPassword: password,
			}), nil
		}
	}

	options, err := c.GetUSBDevices()
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return c.flow.Abort(AbortNoDevices), nil
	}

	defaultDevice := options[0].Value
	if d := input[ConfDevice]; d != "" {
		defaultDevice = d
	}
	return c.flow.ShowForm("user", userSchema(defaultDevice, options), errs), nil
}

// StepUSB starts from a discovered radio with its device preselected
func (c *ConfigFlow) StepUSB(ctx context.Context, info discovery.UsbServiceInfo) (*flow.Result, error) {
	if err := c.flow.SetUniqueID(ctx, info.Device, true); err != nil {
		return nil, err
	}
	return c.StepUser(ctx, map[string]string{ConfDevice: info.Device})
}

func (c *ConfigFlow) runValidator(ctx context.Context, device, id, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate(ctx, device, id, password)
}

func userSchema(defaultDevice string, devices []flow.Option) *flow.Schema {
	return &flow.Schema{Fields: []flow.Field{
		{Key: ConfDevice, Required: true, Default: defaultDevice, Options: devices},
		{Key: ConfID, Required: true},
		{Key: ConfPassword, Required: true, Secret: true},
	}}
}

// errorKey maps a validation failure to the form error shown to the user
func errorKey(err error) string {
	switch {
	case errors.Is(err, skstack.ErrScanFailure):
		return ErrorCannotConnect
	case errors.Is(err, skstack.ErrJoinFailure):
		return ErrorInvalidAuth
	default:
		logging.Errorf("setup: unexpected error validating credentials: %v", err)
		return ErrorUnknown
	}
}
