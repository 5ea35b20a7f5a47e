// Package segmentation implements the binary/labeled segmentation pipeline
// and blob detection built from internal/kernel's voxel primitives.
package segmentation
