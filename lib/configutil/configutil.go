package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

func readJson5[T any](path string) (T, bool, error) {
	var out T
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(contents) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads a json5 configuration file. `name` carries its extension,
// a sibling "<name>.local.<ext>" is merged over it when present, so
// machine-specific secrets can stay out of the committed file.
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	prefix, ext := splitExt(name)

	out, foundDefault, err := readJson5[T](name)
	if err != nil {
		return out, err
	}

	localPath := fmt.Sprintf("%s.local.%s", prefix, ext)
	override, foundLocal, err := readJson5[T](localPath)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !foundDefault && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig, but it walks up from the cwd to the
// filesystem root until a matching file is found.
func ReadRecursively[T any](name string) (T, error) {
	var empty T

	root, err := filepath.Abs("/")
	if err != nil {
		return empty, err
	}
	current, err := os.Getwd()
	if err != nil {
		return empty, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return empty, err
		}
		if current == root {
			return empty, os.ErrNotExist
		}
		current = filepath.Dir(current)
	}
}

// LoadDotenv loads a .env file into the process environment if one exists,
// variables that are already set keep their value.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// OverrideFromEnv replaces each target with the value of its environment
// variable when that variable is set and non-empty.
func OverrideFromEnv(targets map[string]*string) {
	for key, target := range targets {
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		slog.Debug("config overridden by environment", "var", key)
		*target = value
	}
}
