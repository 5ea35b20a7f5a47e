// Package orchestrator drives one analysis request end to end: parameter
// validation, tile planning, the algorithm's staged pipeline, result
// aggregation, and progress/confidence reporting. It is the only package
// that converts an internal package's error into a terminal outcome for a
// caller — every error returned by Run is one of the taxonomy types in
// internal/errorsx.
package orchestrator
