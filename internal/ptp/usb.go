package ptp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"
)

// USB discovers PTP cameras with libusb. Close it after every Device it
// returned has been closed.
type USB struct {
	ctx     *gousb.Context
	timeout time.Duration
	logger  *slog.Logger
}

// NewUSB creates a libusb context. timeout bounds each PTP transaction
// (0 = no bound).
func NewUSB(timeout time.Duration, logger *slog.Logger) *USB {
	return &USB{
		ctx:     gousb.NewContext(),
		timeout: timeout,
		logger:  logger,
	}
}

// Close releases the libusb context.
func (u *USB) Close() error {
	return u.ctx.Close()
}

// ptpInterface locates the still-image interface of a device.
type ptpInterface struct {
	Config    int
	Interface int
	Alternate int
	In        int
	Out       int
}

// findPTPInterface returns the first still-image class interface with a bulk
// IN and a bulk OUT endpoint.
func findPTPInterface(desc *gousb.DeviceDesc) (ptpInterface, bool) {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class != gousb.ClassPTP {
					continue
				}

				in, out := -1, -1

				for _, ep := range alt.Endpoints {
					if ep.TransferType != gousb.TransferTypeBulk {
						continue
					}

					if ep.Direction == gousb.EndpointDirectionIn {
						in = ep.Number
					} else {
						out = ep.Number
					}
				}

				if in >= 0 && out >= 0 {
					return ptpInterface{
						Config:    cfg.Number,
						Interface: intf.Number,
						Alternate: alt.Alternate,
						In:        in,
						Out:       out,
					}, true
				}
			}
		}
	}

	return ptpInterface{}, false
}

// Discover opens every attached device exposing a PTP interface. Devices
// that match but cannot be claimed are logged and skipped.
func (u *USB) Discover(_ context.Context) ([]Device, error) {
	devs, err := u.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := findPTPInterface(desc)
		return ok
	})
	if err != nil {
		// OpenDevices returns the devices it could open alongside the error.
		u.logger.Warn("some USB devices could not be opened", slog.String("error", err.Error()))
	}

	out := make([]Device, 0, len(devs))

	for _, dev := range devs {
		p, _ := findPTPInterface(dev.Desc)

		cam, openErr := u.open(dev, p)
		if openErr != nil {
			u.logger.Warn("skipping USB device",
				slog.String("device", dev.String()),
				slog.String("error", openErr.Error()),
			)

			dev.Close()

			continue
		}

		out = append(out, cam)
	}

	return out, nil
}

// open claims the PTP interface and wraps it as a Camera. On error the
// caller still owns dev.
func (u *USB) open(dev *gousb.Device, p ptpInterface) (*Camera, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		u.logger.Debug("auto-detach unavailable", slog.String("error", err.Error()))
	}

	cfg, err := dev.Config(p.Config)
	if err != nil {
		return nil, fmt.Errorf("ptp: selecting config %d: %w", p.Config, err)
	}

	intf, err := cfg.Interface(p.Interface, p.Alternate)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("ptp: claiming interface %d: %w", p.Interface, err)
	}

	in, err := intf.InEndpoint(p.In)
	if err != nil {
		intf.Close()
		cfg.Close()

		return nil, fmt.Errorf("ptp: opening bulk IN endpoint %d: %w", p.In, err)
	}

	out, err := intf.OutEndpoint(p.Out)
	if err != nil {
		intf.Close()
		cfg.Close()

		return nil, fmt.Errorf("ptp: opening bulk OUT endpoint %d: %w", p.Out, err)
	}

	release := func() error {
		intf.Close()

		return errors.Join(cfg.Close(), dev.Close())
	}

	logger := u.logger.With(slog.String("usb", dev.String()))

	return NewCamera(&usbTransport{in: in, out: out}, release, u.timeout, logger), nil
}

// usbTransport adapts gousb endpoints to Transport.
type usbTransport struct {
	in  *gousb.InEndpoint
	out *gousb.OutEndpoint
}

func (t *usbTransport) Send(ctx context.Context, p []byte) error {
	for len(p) > 0 {
		n, err := t.out.WriteContext(ctx, p)
		if err != nil {
			return err
		}

		p = p[n:]
	}

	return nil
}

func (t *usbTransport) Receive(ctx context.Context, p []byte) (int, error) {
	return t.in.ReadContext(ctx, p)
}
