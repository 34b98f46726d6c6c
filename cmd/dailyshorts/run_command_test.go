package main

import (
	"strings"
	"testing"

	"github.com/gofrs/flock"
)

func TestRunReportsHeldLock(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	lock := flock.New(env.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, []string{"run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "another run is in progress") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"run", "daemon", "history", "show", "check", "config", "auth", "notify"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}
