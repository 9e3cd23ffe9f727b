// Package frames reads the on-disk frame tree.
//
// The layout is <root>/<class>/<video_id>/<image files>. Image files are
// ordered lexicographically by name and that order defines frame indices.
// Images are decoded lazily so a video's frames are only held in memory
// while they are being described.
package frames
