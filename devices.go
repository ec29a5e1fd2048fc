package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached PTP cameras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger(os.Stderr)

			disc, closeDisc, err := openDiscoverer(resolvedCfg, logger)
			if err != nil {
				return fmt.Errorf("opening USB: %w", err)
			}
			defer closeDisc()

			rows, err := listDevices(cmd.Context(), disc, logger)
			if err != nil {
				return err
			}

			if len(rows) == 0 {
				statusf(cmd.ErrOrStderr(), flagQuiet, "No PTP devices found.\n")
				return nil
			}

			printTable(cmd.OutOrStdout(), []string{"MANUFACTURER", "MODEL", "SERIAL", "VOLUMES", "PARTIAL READS"}, rows)

			return nil
		},
	}
}

// listDevices describes every attached device. Devices that cannot be
// queried are listed with the error in place of their details.
func listDevices(ctx context.Context, disc ptp.Discoverer, logger *slog.Logger) ([][]string, error) {
	devices, err := disc.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering devices: %w", err)
	}

	rows := make([][]string, 0, len(devices))

	for i, dev := range devices {
		row, err := describeDevice(ctx, dev)
		releaseDevice(dev, logger)

		if err != nil {
			// A session that would not close leaves the camera unusable.
			for _, rest := range devices[i+1:] {
				releaseDevice(rest, logger)
			}

			return rows, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func releaseDevice(dev ptp.Device, logger *slog.Logger) {
	if err := dev.Close(); err != nil {
		logger.Warn("releasing device", slog.String("error", err.Error()))
	}
}

func describeDevice(ctx context.Context, dev ptp.Device) ([]string, error) {
	info, err := dev.Info(ctx)
	if err != nil {
		return []string{"?", "?", "?", "-", "error: " + err.Error()}, nil
	}

	row := []string{info.Manufacturer, info.Model, info.SerialNumber, "-", "-"}

	sess, err := dev.OpenSession(ctx)
	if err != nil {
		row[4] = "error: " + err.Error()
		return row, nil
	}

	if ids, err := sess.StorageIDs(ctx); err == nil {
		row[3] = strconv.Itoa(len(ids))
	}

	row[4] = strconv.FormatBool(sess.SupportsPartial())

	if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
		return row, fmt.Errorf("closing session on %s: %w", info, err)
	}

	return row, nil
}
