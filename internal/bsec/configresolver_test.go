package bsec

import (
	"crypto/md5" //nolint:gosec // Mirrors the production fingerprinting
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// installVendorConfig drops a configuration blob for one identity into a
// fixture source tree.
func installVendorConfig(t *testing.T, srcDir, identity string, content []byte) {
	t.Helper()
	dir := filepath.Join(srcDir, "config", identity)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating vendor config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, vendorConfigName), content, 0644); err != nil {
		t.Fatalf("writing vendor config: %v", err)
	}
}

// registerConfigHash temporarily marks content as a recognised vendor blob
// for the given identity. The real table holds the digests of the vendor's
// shipped files, which tests cannot reproduce.
func registerConfigHash(t *testing.T, content []byte, identity configIdentity) {
	t.Helper()
	sum := md5.Sum(content) //nolint:gosec
	key := hex.EncodeToString(sum[:])
	knownConfigHashes[key] = identity
	t.Cleanup(func() { delete(knownConfigHashes, key) })
}

func TestConfigResolver_InstallsBlob(t *testing.T) {
	baseDir, srcDir := newBuildFixture(t)
	blob := []byte("config-33v-300s-28d")
	installVendorConfig(t, srcDir, "generic_33v_300s_28d", blob)

	device, err := NewDeviceConfig(0x76, 0, 300, 3.3, 28)
	if err != nil {
		t.Fatalf("NewDeviceConfig() error: %v", err)
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	path, err := resolver.Ensure(device)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if path != filepath.Join(baseDir, ConfigFileName) {
		t.Errorf("Ensure() = %q, want %q", path, filepath.Join(baseDir, ConfigFileName))
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading installed config: %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("installed config = %q, want %q", got, blob)
	}
}

func TestConfigResolver_ReusesRecognisedMatch(t *testing.T) {
	baseDir, srcDir := newBuildFixture(t)
	blob := []byte("config-33v-3s-4d")
	registerConfigHash(t, blob, configIdentity{"generic_33v_3s_4d", 3.3, 3, 4})

	// Pre-install a recognised blob; the vendor tree is deliberately left
	// without this identity so any copy attempt would fail loudly.
	if err := os.WriteFile(filepath.Join(baseDir, ConfigFileName), blob, 0644); err != nil {
		t.Fatalf("writing existing config: %v", err)
	}

	device, err := NewDeviceConfig(0x76, 0, 3, 3.3, 4)
	if err != nil {
		t.Fatalf("NewDeviceConfig() error: %v", err)
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	if _, err := resolver.Ensure(device); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
}

func TestConfigResolver_ReplacesIdentityMismatch(t *testing.T) {
	baseDir, srcDir := newBuildFixture(t)
	oldBlob := []byte("config-18v-3s-4d")
	newBlob := []byte("config-33v-300s-28d")
	registerConfigHash(t, oldBlob, configIdentity{"generic_18v_3s_4d", 1.8, 3, 4})
	installVendorConfig(t, srcDir, "generic_33v_300s_28d", newBlob)

	// Existing file is recognised but belongs to a different identity.
	if err := os.WriteFile(filepath.Join(baseDir, ConfigFileName), oldBlob, 0644); err != nil {
		t.Fatalf("writing existing config: %v", err)
	}

	device, err := NewDeviceConfig(0x76, 0, 300, 3.3, 28)
	if err != nil {
		t.Fatalf("NewDeviceConfig() error: %v", err)
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	path, err := resolver.Ensure(device)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading installed config: %v", err)
	}
	if string(got) != string(newBlob) {
		t.Errorf("installed config = %q, want %q", got, newBlob)
	}
}

func TestConfigResolver_OverwritesUnrecognisedFile(t *testing.T) {
	baseDir, srcDir := newBuildFixture(t)
	newBlob := []byte("config-33v-300s-28d")
	installVendorConfig(t, srcDir, "generic_33v_300s_28d", newBlob)

	if err := os.WriteFile(filepath.Join(baseDir, ConfigFileName), []byte("hand-rolled"), 0644); err != nil {
		t.Fatalf("writing existing config: %v", err)
	}

	device, err := NewDeviceConfig(0x76, 0, 300, 3.3, 28)
	if err != nil {
		t.Fatalf("NewDeviceConfig() error: %v", err)
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	path, err := resolver.Ensure(device)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading installed config: %v", err)
	}
	if string(got) != string(newBlob) {
		t.Errorf("installed config = %q, want %q", got, newBlob)
	}
}

func TestConfigResolver_MissingVendorBlob(t *testing.T) {
	baseDir, srcDir := newBuildFixture(t)

	device, err := NewDeviceConfig(0x76, 0, 300, 3.3, 28)
	if err != nil {
		t.Fatalf("NewDeviceConfig() error: %v", err)
	}

	resolver := NewConfigResolver(baseDir, srcDir)
	if _, err := resolver.Ensure(device); !errors.Is(err, ErrConfigCopy) {
		t.Errorf("Ensure() error = %v, want ErrConfigCopy", err)
	}
}

func TestKnownConfigHashes_CoverAllIdentities(t *testing.T) {
	seen := make(map[string]bool)
	for _, identity := range knownConfigHashes {
		seen[identity.ConfigString] = true
	}

	for _, voltage := range []float64{1.8, 3.3} {
		for _, rate := range []int{3, 300} {
			for _, retain := range []int{4, 28} {
				d, err := NewDeviceConfig(0x76, 0, rate, voltage, retain)
				if err != nil {
					t.Fatalf("NewDeviceConfig() error: %v", err)
				}
				if !seen[d.ConfigString()] {
					t.Errorf("no known hash for identity %s", d.ConfigString())
				}
			}
		}
	}
}
