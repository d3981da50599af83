// Package types defines the wire types exchanged with the pose estimator.
// These are the canonical in-memory representations of one frame of body
// landmarks, shared by the analyzer core and its I/O glue.
package types
