package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) {
	t.Helper()

	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "pointer", Manifest{
		Name:        "pointer",
		Version:     "1.0.0",
		Description: "Host pointer control",
		Executable:  "pointer",
		Actions:     []string{ActionMove, ActionClick},
	})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	p := plugins[0]
	if p.Manifest.Name != "pointer" || p.Manifest.Version != "1.0.0" {
		t.Errorf("manifest = %+v", p.Manifest)
	}
	if p.Path != filepath.Join(root, "pointer") {
		t.Errorf("Path = %q", p.Path)
	}
	if p.Executable != filepath.Join(root, "pointer", "pointer") {
		t.Errorf("Executable = %q", p.Executable)
	}
	if !p.Manifest.Supports(ActionClick) || p.Manifest.Supports(ActionScroll) {
		t.Errorf("Supports() does not match actions %v", p.Manifest.Actions)
	}
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "b", Manifest{Name: "beta", Executable: "run"})
	writeManifest(t, root, "a", Manifest{Name: "alpha", Executable: "run"})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 || plugins[0].Manifest.Name != "alpha" || plugins[1].Manifest.Name != "beta" {
		t.Errorf("List() = %+v, want alpha then beta", plugins)
	}
}

func TestManager_Discover_NameDefaultsToDir(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "pointer", Manifest{Executable: "run"})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if _, err := manager.Get("pointer"); err != nil {
		t.Errorf("Get(pointer) error = %v", err)
	}
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Discover_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "good", Manifest{Name: "good", Executable: "run"})

	bad := filepath.Join(root, "bad")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "plugin.json"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Errorf("List() = %+v, want only good", plugins)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := manager.Discover(); err != nil {
		t.Errorf("Discover() on missing dir = %v, want nil", err)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())
	if _, err := manager.Get("nope"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get() error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	if got := NewManager("/opt/lingyi/plugins").PluginDir(); got != "/opt/lingyi/plugins" {
		t.Errorf("PluginDir() = %q", got)
	}
}
