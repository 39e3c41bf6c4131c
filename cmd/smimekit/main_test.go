package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/remiblancher/smimekit/pkg/errstack"
	"github.com/remiblancher/smimekit/pkg/pkcs7"
)

func TestU_PrintError(t *testing.T) {
	t.Run("[Unit] PrintError: record stack", func(t *testing.T) {
		_, err := pkcs7.DecodeFlags([]string{"binary", "nosuch"})
		var buf bytes.Buffer
		printError(&buf, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if lines[0] != "Error: "+errstack.InvalidOption.String() {
			t.Errorf("first line = %q", lines[0])
		}
		if len(lines) != 1+len(errstack.Records(err)) {
			t.Errorf("got %d lines for %d records", len(lines), len(errstack.Records(err)))
		}
		if !strings.Contains(lines[1], "nosuch") {
			t.Errorf("record line = %q", lines[1])
		}
	})

	t.Run("[Unit] PrintError: plain error", func(t *testing.T) {
		var buf bytes.Buffer
		printError(&buf, errors.New("boom"))
		if buf.String() != "Error: boom\n" {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestF_Options(t *testing.T) {
	out, err := executeCommand(rootCmd, "options")
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	for _, name := range append(pkcs7.FlagNames(), pkcs7.CipherNames()...) {
		if !strings.Contains(out, "  "+name+"\n") {
			t.Errorf("output missing %q", name)
		}
	}
}

func TestF_Version(t *testing.T) {
	out, err := executeCommand(rootCmd, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("output = %q", out)
	}
}

func TestF_LogLevel(t *testing.T) {
	tc := newTestContext(t)
	out := tc.run("--log-level", "debug", "--log-format", "json", "pem", "key", tc.path("alice.key"))
	if !strings.Contains(out, `"msg":"operation completed"`) {
		t.Errorf("expected a json debug line:\n%s", out)
	}

	out = tc.run("pem", "key", tc.path("alice.key"))
	if strings.Contains(out, "operation completed") {
		t.Errorf("logging should be off by default:\n%s", out)
	}
}

func TestF_Serve_InvalidConfig(t *testing.T) {
	tc := newTestContext(t)
	cfg := tc.writeFile("bad.yaml", []byte("log_format: xml\n"))

	if _, err := executeCommand(rootCmd, "serve", "--config", cfg); err == nil {
		t.Fatal("expected configuration error")
	}
	if _, err := executeCommand(rootCmd, "serve", "--port", "70000"); err == nil {
		t.Fatal("expected invalid port error")
	}
}
