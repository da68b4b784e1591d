package configs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSaveAndLoadTOML(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "nested", "test.toml")

	type TestStruct struct {
		Name   string
		Remote string
	}

	originalData := TestStruct{Name: "laptop", Remote: "git@github.com:me/ctx.git"}

	if err := SaveTOML(testFile, originalData, 0600); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loadedData := TestStruct{}
	if err := LoadTOML(testFile, &loadedData); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if loadedData != originalData {
		t.Errorf("Expected %+v, got %+v", originalData, loadedData)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(testFile)
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("Expected mode 0600, got %04o", info.Mode().Perm())
		}
	}
}

func TestLoadTOMLNonExistent(t *testing.T) {
	data := struct{ Name string }{}
	if err := LoadTOML(filepath.Join(t.TempDir(), "nonexistent.toml"), &data); err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
}

func TestLoadTOMLInvalid(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "invalid.toml")
	if err := os.WriteFile(testFile, []byte("name = [unterminated"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data := struct{ Name string }{}
	if err := LoadTOML(testFile, &data); err == nil {
		t.Fatal("Expected error for invalid TOML, got nil")
	}
}
