// Package ingest is the transfer-and-placement pipeline. The Orchestrator
// walks every device, storage volume and object a ptp.Discoverer exposes and,
// for each file object, resolves its metadata, picks a collision-safe
// destination under a year/month/day bucket, fetches the bytes whole or in
// bounded chunks, and commits them to disk.
//
// Processing is strictly sequential. Failures are contained at the smallest
// enclosing unit: an object failure skips the object, a volume enumeration
// failure skips the volume, a device or session-open failure skips the
// device. Only a failed session close stops the run, because it leaves the
// camera in an unknown state.
package ingest
