package apps

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Opener launches an application.
type Opener interface {
	Open(ctx context.Context, a App) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, a App) error

func (f OpenerFunc) Open(ctx context.Context, a App) error { return f(ctx, a) }

// SystemOpener starts applications with the platform's launcher and does
// not wait for them to exit.
type SystemOpener struct{}

func (SystemOpener) Open(_ context.Context, a App) error {
	name, args := launchCommand(runtime.GOOS, a)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", a.Name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// launchCommand picks the program that starts a on goos.
func launchCommand(goos string, a App) (string, []string) {
	switch {
	case goos == "darwin":
		return "open", []string{a.Path}
	case goos == "windows":
		return "cmd", []string{"/c", "start", "", a.Path}
	case a.Kind == KindDesktop:
		if id := strings.TrimSuffix(filepath.Base(a.Path), ".desktop"); id != "" {
			return "gtk-launch", []string{id}
		}
	case a.Kind == KindExecutable:
		return a.Path, nil
	}
	return "xdg-open", []string{a.Path}
}
