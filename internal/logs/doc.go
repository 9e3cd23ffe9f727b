// Package logs reads the framediff log file for the CLI "logs" command.
//
// Last returns the trailing lines with bounded memory; Follow polls for
// appended lines from a byte offset until its context ends. A missing file
// is treated as empty so the command works before the first logged run.
package logs
