// Package buffer provides a thread-safe sliding window over the most recent
// elements written to it.
//
// A Window overwrites its oldest data when full, which makes it suitable for
// analyser taps and log tails where only the latest N values matter. Writers
// never block.
//
// Example usage:
//
//	w := buffer.WindowN[float32](2048)
//	w.Write(block)
//	frame := w.Snapshot(nil) // oldest first
package buffer
