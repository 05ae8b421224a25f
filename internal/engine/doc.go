// Package engine turns a loaded manifest into side effects on disk.
//
// An install moves through fixed phases (see package lifecycle): the run is
// created from a manifest, bound to an install root, given its task selection,
// planned into a closed list of actions, and executed. Every executed action
// appends one entry to the action log. If any action fails, or the context is
// cancelled between actions, the log is replayed backward to undo what was
// done and the run ends rolled back. Otherwise the final write-record action
// persists the log as the uninstall record and the run is committed.
//
// Content that an action overwrites is moved into a per-run staging directory
// first, so rollback can put it back. Commit discards the staging directory.
package engine
