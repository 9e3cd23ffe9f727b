// Package results persists one JSON record per video under
// <root>/<class>/<video_id>.json.
//
// A record's presence at its expected path is the only signal that a video
// is complete, so every write goes through an atomic temp-file rename and
// directory scans ignore in-flight temp files.
package results
