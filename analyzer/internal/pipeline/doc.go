// Package pipeline runs the per-frame analysis: landmarks → angles →
// smoothed angles → zone levels → repetition update → FrameResult.
//
// Pipeline is immutable and may be shared; all mutable state lives in a
// Session (smoother averages, the repetition counter and rep grading). One
// Session tracks exactly one subject and must be used from a single goroutine.
// Session.Reset clears all of it in one call, so no frame can observe a
// half-reset session.
//
// Frames whose required landmarks are missing or below the visibility
// threshold produce a FrameResult with TrackingLost set. The session is kept
// as-is and resumes on the next fully visible frame.
package pipeline
