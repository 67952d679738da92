//go:build !windows

package dialog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeNative(goos string, available ...string) (*Native, *[][]string) {
	var ran [][]string
	have := make(map[string]bool)
	for _, a := range available {
		have[a] = true
	}
	return &Native{
		goos: goos,
		lookPath: func(file string) (string, error) {
			if have[file] {
				return "/usr/bin/" + file, nil
			}
			return "", errors.New("not found")
		},
		run: func(name string, args ...string) error {
			ran = append(ran, append([]string{name}, args...))
			return nil
		},
	}, &ran
}

func TestNative_PrefersZenityOnLinux(t *testing.T) {
	n, ran := fakeNative("linux", "zenity", "kdialog")

	require.NoError(t, n.ShowError("Backend Error", "Cannot find backend files"))
	require.Len(t, *ran, 1)
	assert.Equal(t, "zenity", (*ran)[0][0])
	assert.Contains(t, (*ran)[0], "Cannot find backend files")
}

func TestNative_KDialogWhenNoZenity(t *testing.T) {
	n, ran := fakeNative("linux", "kdialog")

	require.NoError(t, n.ShowError("Backend Error", "boom"))
	require.Len(t, *ran, 1)
	assert.Equal(t, []string{"kdialog", "--title", "Backend Error", "--error", "boom"}, (*ran)[0])
}

func TestNative_NothingAvailable(t *testing.T) {
	n, ran := fakeNative("linux")

	assert.ErrorIs(t, n.ShowError("Backend Error", "boom"), ErrNoDialog)
	assert.Empty(t, *ran)
}

func TestNative_DarwinEscapesAppleScript(t *testing.T) {
	n, ran := fakeNative("darwin", "osascript")

	require.NoError(t, n.ShowError("Backend Error", `path "C:\x"`))
	require.Len(t, *ran, 1)
	script := (*ran)[0][2]
	assert.Contains(t, script, `path \"C:\\x\"`)
	assert.Contains(t, script, `with title "Backend Error"`)
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) ShowError(_, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func TestNative_FallbackOnFailure(t *testing.T) {
	fallback := &recordingNotifier{}
	n, _ := fakeNative("linux")
	n.Fallback = fallback

	assert.NoError(t, n.ShowError("Backend Error", "boom"))
	assert.Equal(t, []string{"boom"}, fallback.messages)
}
