package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

const testRego = `# Rejects the word invalid.
# Second line of description.
package test.policy

import rego.v1

deny contains msg if {
	some cmd in input.commands
	cmd == "invalid"
	msg := "invalid command"
}`

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name          string
		file          string
		content       string
		expectName    string
		expectSev     Severity
		expectEnabled bool
		expectErr     bool
	}{
		{
			name:          "rego",
			file:          "test-policy.rego",
			content:       testRego,
			expectName:    "test-policy",
			expectSev:     SeverityError,
			expectEnabled: true,
		},
		{
			name:          "json",
			file:          "nat.json",
			content:       `{"name": "no-nat", "severity": "warning", "rego": "package nat\n"}`,
			expectName:    "no-nat",
			expectSev:     SeverityWarning,
			expectEnabled: true,
		},
		{
			name:          "yaml disabled",
			file:          "bgp.yaml",
			content:       "name: no-bgp\nenabled: false\nrego: |\n  package bgp\n",
			expectName:    "no-bgp",
			expectSev:     SeverityError,
			expectEnabled: false,
		},
		{
			name:      "definition without rego",
			file:      "empty.yml",
			content:   "name: empty\n",
			expectErr: true,
		},
		{
			name:      "definition without name",
			file:      "anonymous.json",
			content:   `{"rego": "package x"}`,
			expectErr: true,
		},
		{
			name:      "unsupported",
			file:      "policy.txt",
			content:   "package x",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(zerolog.Nop())
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			policy, err := loader.loadFromFile(context.Background(), path)
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to load policy: %v", err)
			}

			if policy.Name != tt.expectName {
				t.Errorf("Expected name %q, got %q", tt.expectName, policy.Name)
			}
			if policy.Severity != tt.expectSev {
				t.Errorf("Expected severity %q, got %q", tt.expectSev, policy.Severity)
			}
			if policy.Enabled != tt.expectEnabled {
				t.Errorf("Expected enabled=%v, got %v", tt.expectEnabled, policy.Enabled)
			}
		})
	}
}

func TestLoadFromFile_Cache(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	path := writeFile(t, t.TempDir(), "cached.rego", testRego)

	first, err := loader.loadFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	writeFile(t, filepath.Dir(path), "cached.rego", "package changed")

	second, err := loader.loadFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if first != second {
		t.Error("Expected the cached policy")
	}

	loader.ClearCache()
	third, err := loader.loadFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if third.Rego != "package changed" {
		t.Error("Expected a fresh read after ClearCache")
	}
}

func TestLoadFromPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rego", testRego)
	writeFile(t, dir, "nested/b.json", `{"name": "b", "rego": "package b\n"}`)
	writeFile(t, dir, "README.md", "# policies")
	writeFile(t, dir, "broken.json", "{not json")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	names := map[string]bool{}
	for _, p := range policies {
		names[p.Name] = true
	}
	if len(policies) != 2 || !names["a"] || !names["b"] {
		t.Errorf("Expected policies a and b, got %v", names)
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		expect  string
	}{
		{name: "multi-line", content: testRego, expect: "Rejects the word invalid. Second line of description."},
		{name: "after package", content: "package x\n# late comment", expect: "late comment"},
		{name: "empty", content: "", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDescription(tt.content); got != tt.expect {
				t.Errorf("Expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadBundle(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "bundle.json",
			content: `{"name": "site", "version": "1.0.0", "policies": [{"name": "a", "rego": "package a"}, {"name": "b", "rego": "package b"}]}`,
		},
		{
			name:    "yaml",
			file:    "bundle.yaml",
			content: "name: site\nversion: 1.0.0\npolicies:\n  - name: a\n    rego: package a\n  - name: b\n    rego: package b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			bundle, err := NewLoader(zerolog.Nop()).LoadBundle(context.Background(), path)
			if err != nil {
				t.Fatalf("Failed to load bundle: %v", err)
			}
			if bundle.Name != "site" || bundle.Version != "1.0.0" || len(bundle.Policies) != 2 {
				t.Errorf("Unexpected bundle %+v", bundle)
			}
		})
	}
}
