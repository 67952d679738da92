//go:build !windows

package dialog

import "strings"

func (n *Native) show(title, message string) error {
	for _, argv := range commands(n.goos, title, message) {
		if _, err := n.lookPath(argv[0]); err != nil {
			continue
		}
		return n.run(argv[0], argv[1:]...)
	}
	return ErrNoDialog
}

// commands lists dialog invocations in preference order.
func commands(goos, title, message string) [][]string {
	if goos == "darwin" {
		script := `display dialog "` + appleScriptEscape(message) + `" with title "` +
			appleScriptEscape(title) + `" buttons {"OK"} default button "OK" with icon stop`
		return [][]string{{"osascript", "-e", script}}
	}
	return [][]string{
		{"zenity", "--error", "--no-markup", "--title", title, "--text", message},
		{"kdialog", "--title", title, "--error", message},
		{"xmessage", "-center", title + "\n\n" + message},
	}
}

func appleScriptEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
