// Package repcount counts exercise repetitions with an explicit state machine
// driven by one trigger metric (typically a smoothed joint angle).
//
// Phases cycle Top → Descending → Bottom → Ascending → Top, and a repetition
// is counted only on the final Ascending → Top transition. Every transition is
// guarded:
//
//   - Top → Descending needs the value below DescendBelow and falling.
//   - Descending → Bottom needs the value at or below BottomBelow and falling.
//     Climbing back to TopAbove from Descending returns to Top without a count
//     (a partial dip).
//   - Bottom → Ascending needs a rise of at least MinBottomRise above the
//     lowest value seen at the bottom, a rising value, and at least
//     MinBottomDwell of observed time spent at the bottom.
//   - Ascending → Bottom happens if the value falls back to BottomBelow.
//   - Ascending → Top needs the value at or above TopAbove and rising.
//
// Forward transitions also need the value to have moved only in the phase's
// expected direction since the last transition. After a reversal the phase
// re-arms once the value has moved that way for two consecutive updates. At
// the bottom a new low restarts the climb.
//
// At most one transition happens per update, so a single noisy frame can never
// skip a phase. Tracking loss is handled with Suspend: the machine keeps its
// phase and the time spent without tracking does not count as bottom dwell.
package repcount
