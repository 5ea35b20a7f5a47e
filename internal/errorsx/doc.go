// Package errorsx collects the module's public error taxonomy into one
// place. Most variants are type aliases for errors already defined close to
// where they occur (loader, tensor, planner); the ones with no single
// natural home — resource exhaustion, invalid parameters, cancellation,
// device failure, and an internal/logic-bug catch-all — are defined here.
package errorsx
