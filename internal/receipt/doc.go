// Package receipt persists the committed action log of an install, keyed by
// application id, and replays it backward to uninstall.
//
// A record is the uninstall script: every action that created or replaced
// something the installer owns is listed in execution order, and Uninstall
// inverts the owned ones from last to first. Records live as one JSON file per
// application in the store directory, written atomically so an interrupted
// install never leaves a half-written record behind.
package receipt
