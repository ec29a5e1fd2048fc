package ptp

import (
	"context"
	"fmt"
	"slices"
)

// StorageID identifies a storage volume (for example an SD card slot).
type StorageID uint32

// ObjectHandle identifies a file or folder entry on a storage volume.
type ObjectHandle uint32

// FormatAssociation is the ObjectFormat code for folders.
const FormatAssociation uint16 = 0x3001

// DeviceInfo is the subset of the GetDeviceInfo dataset the pipeline reports.
type DeviceInfo struct {
	StandardVersion     uint16
	VendorExtensionID   uint32
	Manufacturer        string
	Model               string
	DeviceVersion       string
	SerialNumber        string
	OperationsSupported []uint16
}

// Supports reports whether the device advertises the given operation code.
func (d *DeviceInfo) Supports(op uint16) bool {
	return slices.Contains(d.OperationsSupported, op)
}

// String returns "Manufacturer Model".
func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s %s", d.Manufacturer, d.Model)
}

// ObjectInfo is the decoded GetObjectInfo dataset. CaptureDate and
// ModificationDate are kept in their raw PTP textual form; parsing is the
// caller's decision.
type ObjectInfo struct {
	StorageID        StorageID
	Format           uint16
	CompressedSize   uint32
	ParentObject     ObjectHandle
	Filename         string
	CaptureDate      string
	ModificationDate string
}

// IsFolder reports whether the object is an association (folder).
func (o *ObjectInfo) IsFolder() bool {
	return o.Format == FormatAssociation
}

// Discoverer enumerates attached PTP devices.
type Discoverer interface {
	Discover(ctx context.Context) ([]Device, error)
}

// Device is an attached camera. Close releases the underlying handle and must
// be called after any session has been closed.
type Device interface {
	Info(ctx context.Context) (*DeviceInfo, error)
	OpenSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is an open PTP session on a Device.
type Session interface {
	StorageIDs(ctx context.Context) ([]StorageID, error)
	ObjectHandles(ctx context.Context, storage StorageID) ([]ObjectHandle, error)
	ObjectInfo(ctx context.Context, handle ObjectHandle) (*ObjectInfo, error)
	GetObject(ctx context.Context, handle ObjectHandle) ([]byte, error)
	// GetPartialObject returns at most maxLen bytes starting at offset. Devices
	// return fewer bytes when fewer remain.
	GetPartialObject(ctx context.Context, handle ObjectHandle, offset, maxLen uint32) ([]byte, error)
	// SupportsPartial reports whether GetPartialObject is available.
	SupportsPartial() bool
	Close(ctx context.Context) error
}
