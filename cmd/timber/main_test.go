package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/timber/pkg/timber"
)

func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", base)
	for _, k := range []string{
		"TIMBER_NETWORK_URL", "TIMBER_NETWORK_ENABLED", "TIMBER_EVENT_POLICY",
		"TIMBER_FLUSH_INTERVAL", "TIMBER_LOG_LEVEL", "TIMBER_FILE_PATH", "TIMBER_CONSOLE_ENABLED",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(base)
	return base
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, s, want string) {
	t.Helper()
	if !strings.Contains(s, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, s)
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	base := isolate(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config file did not exist")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(base, "conf", "timber.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "flush interval")
	requireContains(t, out, "5s")
	requireContains(t, out, "single")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	base := isolate(t)
	path := filepath.Join(base, "bad.toml")
	writeConfig(t, path, "[network]\nenabled = true\n")

	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	var ce *timber.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestEmitToConsole(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, []string{
		"emit", "-m", "upload failed", "--level", "error",
		"--error", "api:500:gateway", "--error", "s3:403",
		"--field", "bucket=media",
	}, "")
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	line := strings.TrimSpace(out)
	if !strings.HasPrefix(line, "[error] ") {
		t.Fatalf("unexpected console line %q", line)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "[error] ")), &rec); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	info := rec["userInfo"].(map[string]any)
	if info["error_domain"] != "api" || info["1.error_domain"] != "s3" {
		t.Errorf("cause chain not folded: %v", info)
	}
	if info["bucket"] != "media" {
		t.Errorf("field missing: %v", info)
	}
	if info["description"] != "gateway" {
		t.Errorf("description missing: %v", info)
	}
}

func TestEmitSendsToNetwork(t *testing.T) {
	base := isolate(t)

	var mu sync.Mutex
	var received []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&batch)
		mu.Lock()
		received = append(received, batch...)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(base, "timber.toml")
	writeConfig(t, path, "[console]\nenabled = false\n\n[network]\nenabled = true\nurl = \""+srv.URL+"\"\n")

	_, stderr, err := runCLI(t, []string{
		"emit", "-m", "sync failed", "--policy", "multiple", "--aggregate",
		"--error", "disk:28", "--error", "net:110",
	}, path)
	if err != nil {
		t.Fatalf("emit: %v\n%s", err, stderr)
	}
	requireContains(t, stderr, "emitted 2 event(s)")
	requireContains(t, stderr, "sent 2 network event(s)")

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(received))
	}
}

func TestEmitRequiresMessage(t *testing.T) {
	isolate(t)
	if _, _, err := runCLI(t, []string{"emit"}, ""); err == nil {
		t.Fatal("expected error without --message")
	}
}

func TestBuildError(t *testing.T) {
	chain, err := buildError([]string{"a:1:outer", "b:2"}, false)
	if err != nil {
		t.Fatalf("buildError: %v", err)
	}
	if chain == nil || errors.Unwrap(chain) == nil {
		t.Fatalf("expected a two-level chain, got %v", chain)
	}

	agg, err := buildError([]string{"a:1", "b:2", "c:3"}, true)
	if err != nil {
		t.Fatalf("buildError: %v", err)
	}
	parts, ok := agg.(interface{ Unwrap() []error })
	if !ok || len(parts.Unwrap()) != 3 {
		t.Fatalf("expected aggregate of 3, got %v", agg)
	}

	if none, err := buildError(nil, false); none != nil || err != nil {
		t.Errorf("expected nil, nil; got %v, %v", none, err)
	}

	for _, bad := range []string{"nocode", ":1", "a:x"} {
		if _, err := buildError([]string{bad}, false); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseFields(t *testing.T) {
	got, err := parseFields([]string{"n=3", "ratio=0.5", "ok=true", "name=web-1", "empty="})
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if got["n"] != int64(3) {
		t.Errorf("n = %#v", got["n"])
	}
	if got["ratio"] != 0.5 {
		t.Errorf("ratio = %#v", got["ratio"])
	}
	if got["ok"] != true {
		t.Errorf("ok = %#v", got["ok"])
	}
	if got["name"] != "web-1" {
		t.Errorf("name = %#v", got["name"])
	}
	if got["empty"] != "" {
		t.Errorf("empty = %#v", got["empty"])
	}

	if _, err := parseFields([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
}
