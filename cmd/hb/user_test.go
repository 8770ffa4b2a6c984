package main

import (
	"strings"
	"testing"
)

func TestUserCreateCmd(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCLI(t, "user", "create", "ada", "--password", "correct-horse", "-c", cfg)
	if err != nil {
		t.Fatalf("user create failed: %v", err)
	}
	if !strings.Contains(out, `Created user "ada"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "API key: ") {
		t.Errorf("expected an API key in the output, got: %s", out)
	}

	// Duplicate usernames are rejected.
	if _, err := runCLI(t, "user", "create", "ada", "--password", "correct-horse", "-c", cfg); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestUserCreateAdmin(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := runCLI(t, "user", "create", "root", "--admin", "--password", "correct-horse", "-c", cfg)
	if err != nil {
		t.Fatalf("user create --admin failed: %v", err)
	}
	if !strings.Contains(out, `Created administrator "root"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestUserCreateRejectsReservedName(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "user", "create", "sync-bot", "--password", "correct-horse", "-c", cfg); err == nil {
		t.Error("expected error for reserved username")
	}
}

func TestUserCreateRejectsShortPassword(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := runCLI(t, "user", "create", "bob", "--password", "short", "-c", cfg); err == nil {
		t.Error("expected error for short password")
	}
}
