package sync

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Ay7ot/ctx-sync-sub001/test/integration/shared"
)

// TestTwoDeviceSync is the end-to-end flow of a second device joining:
// it syncs ciphertext immediately and can read it once it has been added.
func TestTwoDeviceSync(t *testing.T) {
	shared.RequireGit(t)
	remote := shared.NewBareRemote(t)
	laptop := shared.NewDevice(t, "laptop")
	desktop := shared.NewDevice(t, "desktop")

	laptop.Use(t)
	shared.MustRunCLI(t, "init", "--remote", remote)
	shared.MustRunCLI(t, "state", "set", "secrets", "STRIPE_KEY", "sk_test_111111")
	output := shared.MustRunCLI(t, "sync", "--non-interactive")
	if !strings.Contains(output, "Changes committed and pushed") {
		t.Fatalf("Expected push in output: %s", output)
	}

	desktop.Use(t)
	output = shared.MustRunCLI(t, "init", "--remote", remote)
	if !strings.Contains(output, "Existing state was pulled") {
		t.Errorf("Expected pull notice in output: %s", output)
	}
	desktopKey := publicKey(t)

	output, err := shared.RunCLI("state", "show", "secrets")
	if err == nil {
		t.Errorf("Expected desktop to be unable to decrypt before being added: %s", output)
	}
	if !strings.Contains(output, "cannot decrypt") {
		t.Errorf("Expected decryption hint in output: %s", output)
	}

	laptop.Use(t)
	shared.MustRunCLI(t, "team", "add", "desktop", desktopKey)
	shared.MustRunCLI(t, "sync", "--non-interactive")

	desktop.Use(t)
	shared.MustRunCLI(t, "sync", "--non-interactive")
	output = shared.MustRunCLI(t, "state", "show", "secrets", "--reveal")
	if !strings.Contains(output, "STRIPE_KEY=sk_test_111111") {
		t.Errorf("Expected desktop to read the value after sync: %s", output)
	}
}

func publicKey(t *testing.T) string {
	t.Helper()
	var info map[string]string
	if err := json.Unmarshal([]byte(shared.MustRunCLI(t, "key", "show", "--format", "json")), &info); err != nil {
		t.Fatalf("Failed to parse key output: %v", err)
	}
	return info["public_key"]
}
