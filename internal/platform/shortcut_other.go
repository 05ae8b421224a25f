//go:build !windows

package platform

import (
	"strings"

	"github.com/dchest/safefile"
)

// writeShortcut renders a freedesktop.org desktop entry.
func writeShortcut(dst string, s Shortcut) error {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Version=1.0\n")
	b.WriteString("Name=" + escapeDesktopValue(s.Name) + "\n")
	if s.Comment != "" {
		b.WriteString("Comment=" + escapeDesktopValue(s.Comment) + "\n")
	}
	args := make([]string, 0, len(s.Args)+1)
	for _, a := range append([]string{s.Target}, s.Args...) {
		args = append(args, execArg(a))
	}
	exec := strings.Join(args, " ")
	b.WriteString("Exec=" + escapeDesktopValue(exec) + "\n")
	if s.Icon != "" {
		b.WriteString("Icon=" + escapeDesktopValue(s.Icon) + "\n")
	}
	if s.WorkingDir != "" {
		b.WriteString("Path=" + escapeDesktopValue(s.WorkingDir) + "\n")
	}
	b.WriteString("Terminal=false\n")

	// Desktop environments only launch entries that are executable.
	return safefile.WriteFile(dst, []byte(b.String()), 0755)
}

// execReserved are the characters that force an Exec argument into quotes.
const execReserved = " \t\n\"'\\><~|&;$*?#()`"

// execArg quotes one Exec argument. Only double quotes are recognised, and
// inside them ", `, $ and \ take a backslash. Field codes start with %, so a
// literal percent sign is doubled.
func execArg(a string) string {
	a = strings.ReplaceAll(a, "%", "%%")
	if a != "" && !strings.ContainsAny(a, execReserved) {
		return a
	}
	r := strings.NewReplacer(`"`, `\"`, "`", "\\`", `$`, `\$`, `\`, `\\`)
	return `"` + r.Replace(a) + `"`
}

func escapeDesktopValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return r.Replace(v)
}
