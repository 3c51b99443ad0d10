package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "relaybot ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestServeHasConfigFlag(t *testing.T) {
	root := newRootCmd()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("missing --config flag")
	}
	serve, _, err := root.Find([]string{"serve"})
	if err != nil || serve.Name() != "serve" {
		t.Fatalf("serve command not registered: %v", err)
	}
}
