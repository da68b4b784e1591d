package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRootShowsHelp(t *testing.T) {
	setupTestEnvironment(t)

	output, err := runCLI()
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Usage:") {
		t.Errorf("Expected usage in output: %s", output)
	}
}

func TestInitCommand(t *testing.T) {
	requireGit(t)
	configDir, syncDir := setupTestEnvironment(t)

	output, err := runCLI("init")
	if err != nil {
		t.Fatalf("Command failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "ctx-sync initialized") {
		t.Errorf("Expected success message not found in output: %s", output)
	}
	if !strings.Contains(output, "ctxsync1") {
		t.Errorf("Expected public key in output: %s", output)
	}
	if strings.Contains(output, "CTXSYNC-SECRET-KEY") {
		t.Errorf("Private key leaked into output: %s", output)
	}

	if _, err := os.Stat(filepath.Join(configDir, "identity.key")); err != nil {
		t.Errorf("Identity was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(syncDir, ".git")); err != nil {
		t.Errorf("Sync repository was not created: %v", err)
	}

	output, err = runCLI("init")
	if err == nil {
		t.Errorf("Expected second init to fail")
	}
	if !strings.Contains(output, "already initialized") {
		t.Errorf("Expected already initialized message in output: %s", output)
	}
}

func TestInitRejectsInsecureRemote(t *testing.T) {
	configDir, _ := setupTestEnvironment(t)

	output, err := runCLI("init", "--remote", "http://example.com/ctx.git")
	if err == nil {
		t.Errorf("Expected init to fail")
	}
	if !strings.Contains(output, "The remote was rejected") {
		t.Errorf("Expected rejection message in output: %s", output)
	}
	if _, err := os.Stat(filepath.Join(configDir, "identity.key")); !os.IsNotExist(err) {
		t.Errorf("Identity should not exist after a rejected init")
	}
}

func TestCommandsRequireInit(t *testing.T) {
	setupTestEnvironment(t)

	for _, args := range [][]string{
		{"key", "show"},
		{"state", "buckets"},
		{"state", "set", "secrets", "k", "v"},
		{"team", "list"},
		{"sync"},
	} {
		output, err := runCLI(args...)
		if err == nil {
			t.Errorf("%v: expected an error", args)
		}
		if !strings.Contains(output, "has not been initialized") {
			t.Errorf("%v: expected not initialized message in output: %s", args, output)
		}
	}
}

func TestStateCommands(t *testing.T) {
	requireGit(t)
	setupTestEnvironment(t)
	mustRun(t, "init")

	output := mustRun(t, "state", "set", "secrets", "STRIPE_KEY", "sk_test_123456")
	if !strings.Contains(output, "Set 'STRIPE_KEY' in [secrets]") {
		t.Errorf("Expected set message in output: %s", output)
	}
	mustRun(t, "state", "set", "env", "PORT", "8080")

	output = mustRun(t, "state", "show", "secrets")
	if !strings.Contains(output, "STRIPE_KEY=sk_t********") {
		t.Errorf("Expected masked value in output: %s", output)
	}
	if strings.Contains(output, "sk_test_123456") {
		t.Errorf("Value shown without --reveal: %s", output)
	}

	output = mustRun(t, "state", "show", "secrets", "--reveal")
	if !strings.Contains(output, "STRIPE_KEY=sk_test_123456") {
		t.Errorf("Expected revealed value in output: %s", output)
	}

	output = mustRun(t, "state", "show", "env", "--format", "json")
	var doc map[string]any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if doc["PORT"] != float64(8080) {
		t.Errorf("Expected PORT to be the number 8080, got %#v", doc["PORT"])
	}

	output = mustRun(t, "state", "show", "env", "--format", "yaml")
	var ydoc map[string]any
	if err := yaml.Unmarshal([]byte(output), &ydoc); err != nil {
		t.Fatalf("Output is not YAML: %v\n%s", err, output)
	}
	if ydoc["PORT"] != 8080 {
		t.Errorf("Expected PORT to be 8080, got %#v", ydoc["PORT"])
	}

	if _, err := runCLI("state", "show", "env", "--format", "xml"); err == nil {
		t.Errorf("Expected an unsupported format to fail")
	}

	output = mustRun(t, "state", "buckets")
	if !strings.Contains(output, "[env]") || !strings.Contains(output, "[secrets]") {
		t.Errorf("Expected both buckets in output: %s", output)
	}

	output = mustRun(t, "state", "unset", "env", "PORT")
	if !strings.Contains(output, "Removed 'PORT'") {
		t.Errorf("Expected removal message in output: %s", output)
	}
	output = mustRun(t, "state", "unset", "env", "PORT")
	if !strings.Contains(output, "is not set") {
		t.Errorf("Expected not set message in output: %s", output)
	}

	mustRun(t, "state", "delete", "env", "--force")
	output = mustRun(t, "state", "buckets", "--format", "json")
	var buckets []map[string]any
	if err := json.Unmarshal([]byte(output), &buckets); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if len(buckets) != 1 || buckets[0]["name"] != "secrets" {
		t.Errorf("Expected only the secrets bucket, got %v", buckets)
	}
}

func TestKeyAndTeamCommands(t *testing.T) {
	requireGit(t)
	configDir, syncDir := setupTestEnvironment(t)
	mustRun(t, "init")

	output := mustRun(t, "key", "show", "--format", "json")
	var key map[string]string
	if err := json.Unmarshal([]byte(output), &key); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if !strings.HasPrefix(key["public_key"], "ctxsync1") {
		t.Errorf("Unexpected public key: %q", key["public_key"])
	}

	fingerprint := strings.TrimSpace(mustRun(t, "key", "fingerprint"))
	if fingerprint != key["fingerprint"] {
		t.Errorf("Fingerprint mismatch: %q vs %q", fingerprint, key["fingerprint"])
	}

	mustRun(t, "state", "set", "secrets", "k", "v")

	// A second device provides the member key.
	other := t.TempDir()
	t.Setenv("CTX_SYNC_HOME", filepath.Join(other, "config"))
	t.Setenv("CTX_SYNC_DIR", filepath.Join(other, "sync"))
	mustRun(t, "init")
	output = mustRun(t, "key", "show", "--format", "yaml")
	var memberKey map[string]string
	if err := yaml.Unmarshal([]byte(output), &memberKey); err != nil {
		t.Fatalf("Output is not YAML: %v\n%s", err, output)
	}
	t.Setenv("CTX_SYNC_HOME", configDir)
	t.Setenv("CTX_SYNC_DIR", syncDir)

	output = mustRun(t, "team", "add", "alice", memberKey["public_key"], "--dry-run")
	if !strings.Contains(output, "[dry-run]") || !strings.Contains(output, "[secrets]") {
		t.Errorf("Expected dry-run listing in output: %s", output)
	}

	output = mustRun(t, "team", "add", "alice", memberKey["public_key"])
	if !strings.Contains(output, "Re-encrypted 1 bucket(s) for 2 recipient(s)") {
		t.Errorf("Expected re-encryption summary in output: %s", output)
	}

	output = mustRun(t, "team", "list", "--format", "json")
	var members []map[string]any
	if err := json.Unmarshal([]byte(output), &members); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if len(members) != 2 || members[1]["name"] != "alice" || members[0]["owner"] != true {
		t.Errorf("Unexpected members: %v", members)
	}

	output, err := runCLI("team", "add", "alice", memberKey["public_key"])
	if err == nil {
		t.Errorf("Expected duplicate add to fail: %s", output)
	}

	output = mustRun(t, "team", "revoke", memberKey["public_key"], "--force")
	if !strings.Contains(output, "revoked") {
		t.Errorf("Expected revoke message in output: %s", output)
	}
}

func TestSyncAndStatusCommands(t *testing.T) {
	requireGit(t)
	setupTestEnvironment(t)
	mustRun(t, "init")
	mustRun(t, "state", "set", "notes", "todo", "ship")

	output := mustRun(t, "sync", "--dry-run")
	if !strings.Contains(output, "2 file(s) would be committed") {
		t.Errorf("Expected dry-run summary in output: %s", output)
	}

	output = mustRun(t, "status", "--format", "json")
	var status map[string]any
	if err := json.Unmarshal([]byte(output), &status); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if status["initialized"] != true {
		t.Errorf("Expected initialized status: %v", status)
	}
	if pending, _ := status["pending"].([]any); len(pending) != 2 {
		t.Errorf("Expected two pending files: %v", status["pending"])
	}

	output = mustRun(t, "sync", "--non-interactive", "-m", "first")
	if !strings.Contains(output, "Changes committed") {
		t.Errorf("Expected commit message in output: %s", output)
	}

	output = mustRun(t, "sync", "--non-interactive")
	if !strings.Contains(output, "Nothing to sync") {
		t.Errorf("Expected nothing to sync in output: %s", output)
	}

	output = mustRun(t, "status")
	if !strings.Contains(output, "[notes]") {
		t.Errorf("Expected bucket in status output: %s", output)
	}
	if strings.Contains(output, "Not yet synced") {
		t.Errorf("Expected no pending files after sync: %s", output)
	}

	if _, err := runCLI("remote", "set", "git://example.com/ctx.git"); err == nil {
		t.Errorf("Expected git:// remote to be rejected")
	}
}

func TestRotateCommand(t *testing.T) {
	requireGit(t)
	setupTestEnvironment(t)
	mustRun(t, "init")
	before := mustRun(t, "key", "fingerprint")
	mustRun(t, "state", "set", "secrets", "k", "v")

	output := mustRun(t, "rotate", "--force")
	if !strings.Contains(output, "Keys rotated successfully") {
		t.Errorf("Expected rotate message in output: %s", output)
	}
	if !strings.Contains(output, "Sync history rewritten") {
		t.Errorf("Expected history rewrite in output: %s", output)
	}

	after := mustRun(t, "key", "fingerprint")
	if before == after {
		t.Errorf("Fingerprint did not change after rotation")
	}

	output = mustRun(t, "state", "show", "secrets", "--reveal")
	if !strings.Contains(output, "k=v") {
		t.Errorf("Expected value readable after rotation: %s", output)
	}

	output, err := runCLI("rotate", "--resume")
	if err == nil {
		t.Errorf("Expected resume without a pending rotation to fail")
	}
	if !strings.Contains(output, "no interrupted rotation") {
		t.Errorf("Expected no rotation message in output: %s", output)
	}

	output = mustRun(t, "log", "--operation", "rotate", "--format", "json")
	var entries []map[string]any
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if len(entries) != 1 {
		t.Errorf("Expected one rotate entry, got %v", entries)
	}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	output, err := runCLI(args...)
	if err != nil {
		t.Fatalf("%v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}
