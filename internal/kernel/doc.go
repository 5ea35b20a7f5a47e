// Package kernel implements the voxel-processing primitives the
// segmentation, analysis, and deconvolution packages build on: separable
// smoothing and edge filters, thresholding, morphological background
// estimation, connected components, watershed, and FFT-based convolution
// support. Every kernel operates on rank-3 (Z, Y, X) tensor.Tensor values
// and validates shape/dtype before touching data.
package kernel
