// Package tiff implements the IFD/tag walker for TIFF, BigTIFF, OME-TIFF,
// and ImageJ-TIFF files: traversal of the IFD chain and tag extraction are
// implemented here directly, since none of golang.org/x/image/tiff's
// single-2D-image decoder covers multi-page 3D/4D stacks, 64-bit BigTIFF
// offsets, or OME-XML/ImageJ metadata comments. Baseline per-plane strip
// decompression (raw/LZW/PackBits) is delegated to x/image/tiff by
// synthesizing a minimal single-IFD TIFF buffer around each page.
package tiff
