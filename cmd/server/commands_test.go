package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vovakirdan/tcprelay/internal/auth"
)

func TestHashPasswordCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("hunter2\n"))
	cmd.SetArgs([]string{"hash-password"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := auth.ComparePassword(hash, "hunter2"); err != nil {
		t.Fatalf("printed hash does not match password: %v", err)
	}
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	t.Setenv("TCPRELAY_ADMIN_JWT_SECRET", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", t.TempDir() + "/config.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error without jwt secret")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TCPRELAY_ADMIN_JWT_SECRET", "cli-secret")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", t.TempDir() + "/config.yaml"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	token := strings.TrimSpace(out.String())
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", token)
	}
}
