// Package config loads and watches the analyzer configuration file.
//
// Top-level types:
//   - Config{Session, Server, History, Exercises}: full tree parsed from YAML
//   - SessionConfig: exercise, alpha, min_visibility, frame_skip
//   - ServerConfig: http_addr, broadcast_interval, result_ttl
//   - HistoryConfig: path of the SQLite session history (empty disables it)
//   - ExerciseConfig: per-exercise overrides: metrics{safe, caution, reason}
//     and rep{trigger, descend_below, bottom_below, top_above,
//     min_bottom_rise, min_bottom_dwell}
//
// Caution bands accept either a single [lo, hi] pair or a list of pairs.
//
// Load(path) reads the YAML file, applies defaults, then validates. A
// malformed file fails at load time, never mid-session. Whether an exercise
// or metric name exists is checked when the exercise is built from the
// registry, also before the first frame.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory so that
// editors which save by rename are picked up, and calls onChange with each
// successfully reloaded Config.
package config
