//go:build windows

package platform

import (
	"fmt"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/kballard/go-shellquote"
)

// writeShortcut creates a .lnk file through the WScript.Shell COM object.
func writeShortcut(dst string, s Shortcut) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED|ole.COINIT_SPEED_OVER_MEMORY); err != nil {
		// S_FALSE means COM was already initialized on this thread.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			return fmt.Errorf("initializing COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("creating WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("querying IDispatch: %w", err)
	}
	defer shell.Release()

	created, err := oleutil.CallMethod(shell, "CreateShortcut", dst)
	if err != nil {
		return fmt.Errorf("CreateShortcut: %w", err)
	}
	link := created.ToIDispatch()
	defer link.Release()

	props := map[string]string{
		"TargetPath":       s.Target,
		"Arguments":        shellquote.Join(s.Args...),
		"WorkingDirectory": s.WorkingDir,
		"Description":      s.Comment,
	}
	if s.Icon != "" {
		props["IconLocation"] = s.Icon + ",0"
	}
	for name, value := range props {
		if value == "" {
			continue
		}
		if _, err := oleutil.PutProperty(link, name, value); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}

	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return fmt.Errorf("saving shortcut: %w", err)
	}
	return nil
}
