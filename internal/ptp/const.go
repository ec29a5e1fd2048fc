package ptp

// Container types.
const (
	containerCommand  uint16 = 1
	containerData     uint16 = 2
	containerResponse uint16 = 3
	containerEvent    uint16 = 4
)

// Operation codes used by this package.
const (
	OpGetDeviceInfo    uint16 = 0x1001
	OpOpenSession      uint16 = 0x1002
	OpCloseSession     uint16 = 0x1003
	OpGetStorageIDs    uint16 = 0x1004
	OpGetObjectHandles uint16 = 0x1007
	OpGetObjectInfo    uint16 = 0x1008
	OpGetObject        uint16 = 0x1009
	OpGetPartialObject uint16 = 0x101B
)

// Response codes.
const (
	RespOK                     uint16 = 0x2001
	RespGeneralError           uint16 = 0x2002
	RespSessionNotOpen         uint16 = 0x2003
	RespOperationNotSupported  uint16 = 0x2005
	RespInvalidObjectHandle    uint16 = 0x2009
	RespDeviceBusy             uint16 = 0x2019
	RespInvalidStorageID       uint16 = 0x2008
	RespIncompleteTransfer     uint16 = 0x2007
	RespSessionAlreadyOpen     uint16 = 0x201E
	RespInvalidParameter       uint16 = 0x201D
	RespStoreNotAvailable      uint16 = 0x2013
	RespAccessDenied           uint16 = 0x200F
	RespInvalidTransactionID   uint16 = 0x2004
	RespParameterNotSupported  uint16 = 0x2006
	RespStoreFull              uint16 = 0x200C
	RespObjectWriteProtected   uint16 = 0x200D
	RespStoreReadOnly          uint16 = 0x200E
	RespNoThumbnailPresent     uint16 = 0x2010
	RespSelfTestFailed         uint16 = 0x2011
	RespPartialDeletion        uint16 = 0x2012
	RespTransactionCancelled   uint16 = 0x201F
	RespSpecificationByFormat  uint16 = 0x2014
	RespNoValidObjectInfo      uint16 = 0x2015
	RespInvalidCodeFormat      uint16 = 0x2016
	RespUnknownVendorCode      uint16 = 0x2017
	RespCaptureAlreadyTerm     uint16 = 0x2018
	RespInvalidParentObject    uint16 = 0x201A
	RespInvalidDevicePropFmt   uint16 = 0x201B
	RespInvalidDevicePropValue uint16 = 0x201C
)

// responseNames maps response codes to the names used in error messages.
var responseNames = map[uint16]string{
	RespOK:                     "OK",
	RespGeneralError:           "GeneralError",
	RespSessionNotOpen:         "SessionNotOpen",
	RespInvalidTransactionID:   "InvalidTransactionID",
	RespOperationNotSupported:  "OperationNotSupported",
	RespParameterNotSupported:  "ParameterNotSupported",
	RespIncompleteTransfer:     "IncompleteTransfer",
	RespInvalidStorageID:       "InvalidStorageID",
	RespInvalidObjectHandle:    "InvalidObjectHandle",
	RespStoreFull:              "StoreFull",
	RespObjectWriteProtected:   "ObjectWriteProtected",
	RespStoreReadOnly:          "StoreReadOnly",
	RespAccessDenied:           "AccessDenied",
	RespNoThumbnailPresent:     "NoThumbnailPresent",
	RespSelfTestFailed:         "SelfTestFailed",
	RespPartialDeletion:        "PartialDeletion",
	RespStoreNotAvailable:      "StoreNotAvailable",
	RespSpecificationByFormat:  "SpecificationByFormatUnsupported",
	RespNoValidObjectInfo:      "NoValidObjectInfo",
	RespInvalidCodeFormat:      "InvalidCodeFormat",
	RespUnknownVendorCode:      "UnknownVendorCode",
	RespCaptureAlreadyTerm:     "CaptureAlreadyTerminated",
	RespDeviceBusy:             "DeviceBusy",
	RespInvalidParentObject:    "InvalidParentObject",
	RespInvalidDevicePropFmt:   "InvalidDevicePropFormat",
	RespInvalidDevicePropValue: "InvalidDevicePropValue",
	RespInvalidParameter:       "InvalidParameter",
	RespSessionAlreadyOpen:     "SessionAlreadyOpen",
	RespTransactionCancelled:   "TransactionCancelled",
}

// opNames maps operation codes to names for logs and errors.
var opNames = map[uint16]string{
	OpGetDeviceInfo:    "GetDeviceInfo",
	OpOpenSession:      "OpenSession",
	OpCloseSession:     "CloseSession",
	OpGetStorageIDs:    "GetStorageIDs",
	OpGetObjectHandles: "GetObjectHandles",
	OpGetObjectInfo:    "GetObjectInfo",
	OpGetObject:        "GetObject",
	OpGetPartialObject: "GetPartialObject",
}
