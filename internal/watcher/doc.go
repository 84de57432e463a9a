// Package watcher provides continuous cache observation for a project.
//
// The watcher combines fsnotify events on the project root and known
// cache directories with a periodic re-measurement ticker. Every
// measurement runs the same discover/inspect pipeline the one-shot
// commands use and emits a structured log line with the current totals.
//
// A daemon mode re-executes the binary detached from the terminal with
// a PID file, so the watcher can outlive the invoking shell.
package watcher
