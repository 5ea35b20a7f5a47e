// Package deconv implements PSF synthesis and the Richardson-Lucy and
// Wiener deconvolution algorithms, built on internal/kernel's FFT
// machinery.
package deconv
