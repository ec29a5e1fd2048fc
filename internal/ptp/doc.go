// Package ptp is the Picture Transfer Protocol collaborator used by the
// ingest pipeline. The pipeline only sees the Discoverer, Device and Session
// interfaces declared in types.go; this package also ships the concrete
// PTP-over-USB implementation behind them.
//
// Layering, bottom up:
//
//	Transport  bulk IN/OUT endpoints (gousb in production, fakes in tests)
//	conn       container framing and the command/data/response transaction
//	camera     Device and Session on top of a conn
//	USB        Discoverer that finds still-image class interfaces
//
// Every call is blocking and sequential. A conn must not be shared between
// goroutines.
package ptp
