package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/litescript/ls-sensitivity/internal/form"
)

const yamlPreset = `calculation: sensitivity
observing: line
fields:
  obs_freq:
    value: "800"
    unit: MHz
  Tsys_SKA:
    value: "35"
    manual: true
`

const tomlPreset = `calculation = "sensitivity"
observing = "line"

[fields.obs_freq]
value = "800"
unit = "MHz"

[fields.Tsys_SKA]
value = "35"
manual = true
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func checkPreset(t *testing.T, p form.Preset) {
	t.Helper()
	if p.Calculation != "sensitivity" || p.Observing != "line" {
		t.Errorf("modes = %q/%q", p.Calculation, p.Observing)
	}
	of := p.Fields["obs_freq"]
	if of.Value == nil || *of.Value != "800" || of.Unit != "MHz" {
		t.Errorf("obs_freq = %+v", of)
	}
	ts := p.Fields["Tsys_SKA"]
	if ts.Manual == nil || !*ts.Manual {
		t.Errorf("Tsys_SKA manual = %v", ts.Manual)
	}
	if ts.Enabled != nil {
		t.Errorf("Tsys_SKA enabled = %v, want unset", *ts.Enabled)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file    string
		content string
	}{
		{"p.yaml", yamlPreset},
		{"p.yml", yamlPreset},
		{"p.toml", tomlPreset},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)
			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			checkPreset(t, p)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "p.json")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(json) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "calculation = [\n")
	if _, err := Load(bad); err == nil {
		t.Error("Load(bad toml) succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	value := "800"
	manual := true
	want := form.Preset{
		Calculation: "sensitivity",
		Observing:   "line",
		Fields: map[string]form.PresetField{
			"obs_freq": {Value: &value, Unit: "MHz"},
			"Tsys_SKA": {Value: &value, Manual: &manual},
		},
	}
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(path, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Error("temp file left behind")
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Calculation != want.Calculation || *got.Fields["obs_freq"].Value != "800" || !*got.Fields["Tsys_SKA"].Manual {
				t.Errorf("round trip = %+v", got)
			}
		})
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")
	writeFile(t, path, "calculation: integration-time\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, yamlPreset)

	select {
	case change := <-w.Changes:
		if change.Err != nil {
			t.Fatalf("change error: %v", change.Err)
		}
		checkPreset(t, change.Preset)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")
	writeFile(t, path, yamlPreset)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "other.yaml"), "calculation: sensitivity\n")

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherForwardsErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")
	writeFile(t, path, yamlPreset)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	overflow := errors.New("event queue overflow")
	w.watcher.Errors <- overflow

	select {
	case change := <-w.Changes:
		if !errors.Is(change.Err, overflow) {
			t.Errorf("change error = %v, want %v", change.Err, overflow)
		}
		if change.Path != w.Path {
			t.Errorf("change path = %q, want %q", change.Path, w.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error change")
	}
}

func TestWatcherRejectsUnsupportedFormat(t *testing.T) {
	if _, err := NewWatcher("preset.ini"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("NewWatcher error = %v, want ErrUnsupportedFormat", err)
	}
}
