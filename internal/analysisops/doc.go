// Package analysisops implements the per-region and per-channel
// measurements computed once segmentation has produced a label volume:
// region statistics, colocalization, and intensity analysis.
package analysisops
