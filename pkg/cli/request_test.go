package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type renderRequest struct {
	Phrases int     `yaml:"phrases" json:"phrases"`
	Seed    uint64  `yaml:"seed" json:"seed"`
	Gain    float64 `yaml:"gain" json:"gain"`
}

func TestLoadRequest(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"req.yaml": "phrases: 3\nseed: 7\ngain: 0.5\n",
		"req.json": `{"phrases": 3, "seed": 7, "gain": 0.5}`,
		"req.txt":  "phrases: 3\nseed: 7\ngain: 0.5\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		var req renderRequest
		if err := LoadRequest(path, &req); err != nil {
			t.Fatalf("LoadRequest(%s): %v", name, err)
		}
		if req != (renderRequest{Phrases: 3, Seed: 7, Gain: 0.5}) {
			t.Errorf("LoadRequest(%s) = %+v", name, req)
		}
	}

	var req renderRequest
	if err := LoadRequest(filepath.Join(dir, "missing.yaml"), &req); err == nil {
		t.Error("LoadRequest of a missing file should fail")
	}
	if err := ParseRequest([]byte("{phrases"), "bad.json", &req); err == nil {
		t.Error("ParseRequest of broken JSON should fail")
	}
}

func TestLoadRequestFrom(t *testing.T) {
	var req renderRequest
	if err := LoadRequestFrom(strings.NewReader(`{"phrases": 2}`), &req); err != nil {
		t.Fatalf("LoadRequestFrom(JSON): %v", err)
	}
	if req.Phrases != 2 {
		t.Errorf("Phrases = %d, want 2", req.Phrases)
	}
	if err := LoadRequestFrom(strings.NewReader("seed: 11\n"), &req); err != nil {
		t.Fatalf("LoadRequestFrom(YAML): %v", err)
	}
	if req.Seed != 11 {
		t.Errorf("Seed = %d, want 11", req.Seed)
	}
}
