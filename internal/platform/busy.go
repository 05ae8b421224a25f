package platform

import "errors"

// IsBusy reports whether err means another process holds the file open in a
// way that blocks replacement or removal. Such failures are worth retrying.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var busy interface{ Busy() bool }
	if errors.As(err, &busy) && busy.Busy() {
		return true
	}
	return isSharingViolation(err)
}

// BusyError marks an error as a sharing violation. Tests use it to simulate
// a locked file without holding a real handle.
type BusyError struct {
	Path string
}

func (e *BusyError) Error() string { return "file is in use: " + e.Path }

// Busy implements the marker checked by IsBusy.
func (e *BusyError) Busy() bool { return true }
