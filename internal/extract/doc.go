// Package extract turns source videos into uniformly sampled frame
// directories using the ffprobe and ffmpeg binaries.
//
// Probe reports a video's frame count; Extract keeps every stride-th frame
// (stride = total / maxFrames, at least 1) until maxFrames images exist,
// naming them frame_000.jpg, frame_001.jpg and so on. ExtractTree mirrors a
// videos/<class>/<file> tree into frames/<class>/<stem>/ and leaves
// directories that already hold frames untouched.
package extract
