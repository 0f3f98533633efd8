package cli

import (
	"os"
	"path/filepath"
)

const (
	// DefaultBaseDir is the per-user state directory name.
	DefaultBaseDir = ".ambient"
	// DefaultConfigFile is the engine configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Paths locates the ambient state directory (~/.ambient).
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths returns Paths rooted at the current user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns ~/.ambient.
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns ~/.ambient/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// RenderDir returns the default directory for offline renders.
func (p *Paths) RenderDir() string {
	return filepath.Join(p.BaseDir(), "renders")
}

// LogDir returns ~/.ambient/logs.
func (p *Paths) LogDir() string {
	return filepath.Join(p.BaseDir(), "logs")
}

// EnsureBaseDir creates the base directory if it doesn't exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureRenderDir creates the render directory if it doesn't exist.
func (p *Paths) EnsureRenderDir() error {
	return os.MkdirAll(p.RenderDir(), 0755)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func (p *Paths) EnsureLogDir() error {
	return os.MkdirAll(p.LogDir(), 0755)
}

// RenderPath returns a path within the render directory.
func (p *Paths) RenderPath(name string) string {
	return filepath.Join(p.RenderDir(), name)
}

// LogPath returns a path within the log directory.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogDir(), name)
}

// ResolveConfig returns flag when set, otherwise the default config file.
func (p *Paths) ResolveConfig(flag string) string {
	if flag != "" {
		return flag
	}
	return p.ConfigFile()
}
