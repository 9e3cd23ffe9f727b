// Command framediff measures how much redundancy frame-by-frame video
// descriptions carry and how much a change-only description mode removes.
//
// The run command describes every video under the frames tree twice
// (independent per-frame captions and consecutive-pair change descriptions),
// scores both sequences, and stores one JSON record per video. analyze
// aggregates those records per class; recompute rescores existing records
// after metric changes; extract samples frames from source videos.
package main
