// Package source reads pose-estimator output as newline-delimited JSON.
//
// Each line is one types.Frame:
//
//	{"ts_ms": 1700000000000, "landmarks": [{"name": "left_knee", "x": 0.5, "y": 0.6, "visibility": 0.98}, ...]}
//
// A malformed line is logged and skipped. A frame without ts_ms is stamped
// with the decoder's clock. A frame whose timestamp goes backwards is
// dropped, since rep dwell time is measured between frame timestamps.
// Read errors from the underlying reader end the stream.
package source
