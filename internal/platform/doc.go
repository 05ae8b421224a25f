// Package platform provides the OS-specific pieces of an install: shortcut
// files (.lnk via COM on Windows, freedesktop .desktop entries elsewhere),
// classification of sharing-violation errors, detection of running
// processes inside an install root, per-application install locks, and
// permission management.
package platform
