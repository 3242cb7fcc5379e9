// Package timeline reconstructs ordered event timelines from bitemporal
// facts and projects them for export and visualization.
//
// Reconstruct is a pure transform: no internal state machine, no mutation
// of the fact log or index. Repeated calls over a fixed log produce
// identical output. Long scans check cooperative cancellation at a bounded
// fact interval and honor deadlines by returning the partial timeline with
// Complete=false.
//
// The interpolator fills gaps between bounding facts: exact decimal linear
// interpolation for numeric fields, forward-fill for everything else, and
// an explicit unknown result when no earlier fact exists - values are never
// back-filled from the future.
package timeline
