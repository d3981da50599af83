// Package exercise defines the exercise plug-in contract and the registry
// that selects an exercise by name.
//
// An exercise supplies only data: the angles it measures (three anchors per
// metric), the zone bands for each metric, and the repetition cycle. The
// geometry, smoothing, classification and counting machinery is shared.
//
// Registry.Build applies configuration overrides to an exercise's defaults
// and validates the result; any problem is reported as a *ConfigurationError
// before the first frame is processed.
package exercise
