package cli

import (
	"os"
	"path/filepath"

	"github.com/raumaankidwai/nim/pkg"
)

// baseConfig is the base name of the configuration files.
const baseConfig = "config"

// defaultDirMode is the default permission mode for created directories.
var defaultDirMode os.FileMode = 0o700

// configPath returns the absolute path to a file or directory formed by joining
// the global configuration directory path with the given path elements.
//
// If no elements are given, it is equivalent to calling [pkg.ConfigDir].
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}

// configFile is a configuration file format and its loader.
type configFile struct {
	ext  string
	load loader
}

// configFiles lists the configuration files in the order they are resolved.
// Values from later files take precedence.
var configFiles = []configFile{
	{".json", loadJSON},
	{".toml", loadTOML},
	{".yml", loadYAML},
	{".yaml", loadYAML},
}

// mkdirAllRequired creates all required runtime directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
