package main

import (
	"path/filepath"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/google/go-cmp/cmp"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/config"
)

func parse(t *testing.T, argv ...string) args {
	t.Helper()
	var a args
	p, err := arg.NewParser(arg.Config{Program: "tcpserver"}, &a)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if err := p.Parse(argv); err != nil {
		t.Fatalf("Parse(%q): %v", argv, err)
	}
	return a
}

func TestStartDefaultsKeepConfig(t *testing.T) {
	a := parse(t, "start", "9000")
	if a.Start == nil {
		t.Fatal("start subcommand not selected")
	}

	cfg := config.Default()
	applyFlags(cfg, a.Start)

	want := config.Default()
	want.Port = 9000
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestStartFlagsOverrideConfig(t *testing.T) {
	a := parse(t, "start", "9000", "Hello", "--verbose=false", "--sink",
		"--charset", "ISO-8859-1", "--health-port", "8080")

	cfg := config.Default()
	cfg.ResponseMode = config.ResponseFile
	applyFlags(cfg, a.Start)

	want := config.Default()
	want.Port = 9000
	want.Response = "Hello"
	want.ResponseMode = config.ResponseStatic
	want.Verbose = false
	want.HandlerMode = config.HandlerSink
	want.Charset = "ISO-8859-1"
	want.HealthServerPort = "8080"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionSubcommand(t *testing.T) {
	a := parse(t, "version")
	if a.Version == nil || a.Start != nil {
		t.Fatalf("unexpected selection: %+v", a)
	}
}

func TestRunReturnsSetupErrors(t *testing.T) {
	t.Setenv("RUNTIME", "vm")
	t.Setenv("RESPONSE_MODE", "file")
	t.Setenv("RESPONSE_FILE", filepath.Join(t.TempDir(), "missing.txt"))
	t.Setenv("HEALTH_SERVER_PORT", "")

	if err := run(&startCmd{Port: 9000}); err == nil {
		t.Fatal("expected run to return the response error")
	}
}
