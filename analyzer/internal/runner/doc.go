// Package runner drives one analysis session from a stream of frames.
//
// Build(cfg, registry) turns configuration into a Pipeline and fails fast
// with an *exercise.ConfigurationError when an exercise cannot be built.
//
// A Runner owns the pipeline Session and the summary Accumulator on the
// goroutine that calls Run. Other goroutines interact with it only through
// RequestReset, Reload, Profile and Summary:
//
//   - RequestReset queues a reset that Run applies between frames, so no
//     frame observes a half-reset session.
//   - Reload builds a pipeline from a new config and parks it; it takes
//     effect at the next reset, keeping profiles immutable within a segment.
//   - On every reset the finished segment's summary is saved to history.
package runner
