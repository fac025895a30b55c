package devenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const statePrefix = "<dev_state>"

var modName = regexp.MustCompile(`(?m)^module *([\w\-_./]+)$`)

func isWorkspaceRoot(dir string) bool {
	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == "courserank-backend"
}

// GetWorkspaceRoot walks up from the cwd until it finds the directory
// holding this module's go.mod.
func GetWorkspaceRoot() (string, error) {
	current, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs("/")
	if err != nil {
		return "", err
	}

	for current != root {
		if isWorkspaceRoot(current) {
			return current, nil
		}
		current = filepath.Dir(current)
	}
	return "", os.ErrNotExist
}

// ResolvePath expands a leading "<dev_state>" into <workspace>/dev/.state,
// creating the state directory if needed. Other paths are returned as-is.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, statePrefix) {
		return path, nil
	}

	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	stateDir := filepath.Join(root, "dev", ".state")
	err = os.MkdirAll(stateDir, 0777)
	if err != nil {
		return "", err
	}

	subpath := strings.TrimPrefix(path, statePrefix)
	subpath = strings.TrimLeft(subpath, `/\`)
	return filepath.Join(stateDir, subpath), nil
}
