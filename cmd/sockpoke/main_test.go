package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sockpoke/internal/config"
	"sockpoke/internal/exchange"
	"sockpoke/internal/testsupport"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func setupConfigFile(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, path, cfg)
	return cfg, path
}

func runCLI(t *testing.T, args []string, stdin string, configPath string) cliResult {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func TestCLIListenConnectWithTranscript(t *testing.T) {
	cfg, configPath := setupConfigFile(t, testsupport.WithTranscript())
	socket := cfg.Session.Socket

	done := make(chan cliResult, 1)
	go func() {
		done <- runCLI(t, []string{"listen", "--summary"}, "ab\n\n", configPath)
	}()
	testsupport.WaitForPath(t, socket, 2*time.Second)

	connector := runCLI(t, []string{"connect", socket}, "\n", configPath)
	testsupport.SkipIfSocketsUnavailable(t, connector.err)
	if connector.err != nil {
		t.Fatalf("connect: %v (stderr %q)", connector.err, connector.stderr)
	}
	if want := "Read 1 bytes: ab\nWrite:\nSkipping...\nWrite:\n"; connector.stdout != want {
		t.Fatalf("connector output %q, want %q", connector.stdout, want)
	}

	var listener cliResult
	select {
	case listener = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not finish")
	}
	if listener.err != nil {
		t.Fatalf("listen: %v (stderr %q)", listener.err, listener.stderr)
	}
	requireContains(t, listener.stdout, "Write:\nWrite:\nSkipping...\nRead 0 bytes: \nWrite:\n")
	requireContains(t, listener.stdout, "Direction")
	requireContains(t, listener.stdout, "Peer closed: yes")
	testsupport.AssertMissing(t, socket)
	testsupport.AssertMissing(t, exchange.LockPath(socket))

	history := runCLI(t, []string{"history", "--limit", "0"}, "", configPath)
	if history.err != nil {
		t.Fatalf("history: %v", history.err)
	}
	requireContains(t, history.stdout, "listen")
	requireContains(t, history.stdout, "connect")
	requireContains(t, history.stdout, "(skip)")
	requireContains(t, history.stdout, "(empty)")
	requireContains(t, history.stdout, "ab")
}

func TestCLIConnectWithoutListener(t *testing.T) {
	cfg, configPath := setupConfigFile(t)

	res := runCLI(t, []string{"connect"}, "", configPath)
	if res.err == nil {
		t.Fatal("expected connect to fail without a listener")
	}
	requireContains(t, res.err.Error(), cfg.Session.Socket)
	requireContains(t, res.err.Error(), "sockpoke listen")
}

func TestCLIListenRejectsInvalidHex(t *testing.T) {
	cfg, configPath := setupConfigFile(t)
	socket := cfg.Session.Socket

	done := make(chan cliResult, 1)
	go func() {
		done <- runCLI(t, []string{"listen"}, "zz\n", configPath)
	}()
	testsupport.WaitForPath(t, socket, 2*time.Second)

	conn := runCLI(t, []string{"connect"}, "", configPath)
	testsupport.SkipIfSocketsUnavailable(t, conn.err)

	var listener cliResult
	select {
	case listener = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not finish")
	}
	if listener.err == nil {
		t.Fatal("expected decode failure")
	}
	requireContains(t, listener.err.Error(), "invalid hex input")
	testsupport.AssertMissing(t, socket)

	logged, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	requireContains(t, string(logged), "session failed")
	requireContains(t, string(logged), "session_failed")
	requireContains(t, string(logged), "hex digits")
}

func TestCLIRejectsLongSocketPath(t *testing.T) {
	_, configPath := setupConfigFile(t)
	long := "/tmp/" + strings.Repeat("x", 120) + ".sock"

	res := runCLI(t, []string{"listen", long}, "", configPath)
	if res.err == nil {
		t.Fatal("expected socket path validation error")
	}
	requireContains(t, res.err.Error(), "limit")
}

func TestCLIRejectsBadLogFormat(t *testing.T) {
	_, configPath := setupConfigFile(t)

	res := runCLI(t, []string{"--log-format", "xml", "history"}, "", configPath)
	if res.err == nil {
		t.Fatal("expected log format error")
	}
	requireContains(t, res.err.Error(), "--log-format")
}

func TestHistoryWithoutTranscript(t *testing.T) {
	cfg, configPath := setupConfigFile(t)

	res := runCLI(t, []string{"history"}, "", configPath)
	if res.err != nil {
		t.Fatalf("history: %v", res.err)
	}
	requireContains(t, res.stdout, "No transcript recorded at "+cfg.Transcript.Path)
}

func TestLogsCommand(t *testing.T) {
	cfg, configPath := setupConfigFile(t)
	logPath := cfg.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("create log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	res := runCLI(t, []string{"logs", "--lines", "2"}, "", configPath)
	if res.err != nil {
		t.Fatalf("logs: %v", res.err)
	}
	if res.stdout != "second\nthird\n" {
		t.Fatalf("unexpected logs output %q", res.stdout)
	}
}

func TestLogsCommandWithoutLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.LogDir = ""
	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	res := runCLI(t, []string{"logs"}, "", configPath)
	if res.err == nil {
		t.Fatal("expected error when file logging is disabled")
	}
	requireContains(t, res.err.Error(), "logging.log_dir")
}
