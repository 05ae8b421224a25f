// Package paths resolves symbolic path tokens such as {app}, {pf}, {group},
// and {userdesktop} to absolute filesystem locations.
//
// The token set is closed. A Resolver is built from an Environment snapshot
// and the run's install root, and never consults process state afterwards,
// so resolving the same symbolic path during uninstall reproduces the path
// that was used during install.
package paths
