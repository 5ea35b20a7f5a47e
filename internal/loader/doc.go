// Package loader probes and reads multi-dimensional microscopy volumes from
// disk: TIFF family formats (TIFF, BigTIFF, OME-TIFF, ImageJ-TIFF, LSM) get
// a full custom IFD walker in internal/loader/tiff; CZI, ND2, and LIF are
// detected and metadata-probed at the container-header level only.
package loader
