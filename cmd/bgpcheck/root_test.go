package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
checks:
  - name: web
    prefixes: [192.0.2.0/24]
    nexthop: self
    metric: 100
    communities: ["65000:100"]
    args:
      method: tcp
      host: 127.0.0.1
      port: 80
`

func TestTestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgpcheck.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"test", "-f", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("test command: %v", err)
	}
	want := "announce route 192.0.2.0/24 next-hop self med 100 community [65000:100]"
	if !strings.Contains(out.String(), want) {
		t.Fatalf("want %q in output, got:\n%s", want, out.String())
	}
}

func TestTestCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgpcheck.yaml")
	if err := os.WriteFile(path, []byte("checks:\n  - name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", "-f", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("want validation error")
	}
}

func TestConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bgpcheck.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BGPCHECK_CONFIG", path)
	t.Setenv("BGPCHECK_VERBOSITY", "2")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"test"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("test command with env config: %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Fatalf("env config path not used: %s", out.String())
	}

	t.Setenv("BGPCHECK_VERBOSITY", "loud")
	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"test"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("want error for non-numeric verbosity")
	}
}
