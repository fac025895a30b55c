package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "courserank-backend/dev/env"
)

// FilesystemOutput writes each recorded exchange to "<name>.txt" inside a
// directory that is emptied on creation, so it only ever holds the dumps
// of the latest run.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear %s: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create %s: %w", dir, err)
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(name string, contents string) {
	path := filepath.Join(o.directory, name+".txt")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "path", path, "err", err)
	}
}
