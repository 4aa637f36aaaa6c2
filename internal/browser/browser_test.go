package browser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrepareProfileCreates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a@x.com")
	if err := PrepareProfile(dir, false); err != nil {
		t.Fatalf("PrepareProfile: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("profile dir not created: %v", err)
	}
}

func TestPrepareProfileForceWipes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a@x.com")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "Cookies")
	if err := os.WriteFile(stale, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := PrepareProfile(dir, true); err != nil {
		t.Fatalf("PrepareProfile: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("forced prepare left prior profile contents in place")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Error("forced prepare did not recreate the profile dir")
	}
}

func TestPrepareProfileWithoutForceKeeps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a@x.com")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "Cookies")
	if err := os.WriteFile(keep, []byte("keep"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := PrepareProfile(dir, false); err != nil {
		t.Fatalf("PrepareProfile: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("non-forced prepare dropped existing profile contents")
	}
}
