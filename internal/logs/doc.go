// Package logs reads the daemon's JSON log file for the CLI.
//
// Last returns the trailing lines of the file, Follow polls for appended
// lines, and Filter/Format select and render individual records so a single
// playback run can be traced by its run id.
package logs
