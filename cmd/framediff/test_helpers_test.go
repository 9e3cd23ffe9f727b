package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"framediff/internal/config"
	"framediff/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	calls      atomic.Int64
	pairCalls  atomic.Int64
}

// setupCLITestEnv writes a config pointing every path at a temp dir and the
// model client at a local chat-completions stub.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		var payload struct {
			Messages []struct {
				Content []struct {
					Type string `json:"type"`
				} `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		images := 0
		if len(payload.Messages) > 0 {
			for _, part := range payload.Messages[0].Content {
				if part.Type == "image_url" {
					images++
				}
			}
		}
		text := "A person holds a red cup on a wooden table."
		if images == 2 {
			env.pairCalls.Add(1)
			text = "The person lifts the cup."
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": text}}},
		})
	}))
	t.Cleanup(env.server.Close)

	opts = append([]testsupport.ConfigOption{testsupport.WithBaseURL(env.server.URL)}, opts...)
	env.cfg = testsupport.NewConfig(t, opts...)
	env.cfg.Logging.Level = "error"
	if err := os.MkdirAll(env.cfg.Paths.FramesDir, 0o755); err != nil {
		t.Fatalf("mkdir frames: %v", err)
	}

	env.configPath = filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
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

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
