// Package tensor implements the rank-3 (Z, Y, X) voxel buffer used
// throughout the analysis pipeline, in both host- and device-resident
// form.
//
// A Tensor carries its shape, stride, and dtype as plain fields inspectable
// without a device round-trip; only FromHost/ToHost/device kernel dispatch
// actually move bytes. Host-resident tensors borrow their backing buffer
// from a pool (see pool.go) to keep per-tile allocation off the GC.
package tensor
