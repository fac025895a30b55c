package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	devenv "courserank-backend/dev/env"
	"courserank-backend/lib/sqliteutil"
	"courserank-backend/services/staging/db"
)

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

func CreateLocalStack() error {
	err := os.Chdir("dev/local_stack")
	if err != nil {
		return err
	}
	cmd("docker", "compose", "up", "-d")
	return os.Chdir("../..")
}

func CreateStagingDB() error {
	path, err := devenv.ResolvePath("<dev_state>/staging.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("staging database already created at", path)
		return nil
	}

	fmt.Println("creating staging database at", path)
	database, err := sqliteutil.OpenDB(path)
	if err != nil {
		return err
	}
	defer database.Close()
	return sqliteutil.Migrate(database, db.Schema)
}

func PrintConfigLocations() {
	slog.Info("copy config.json5 to config.local.json5 to point the cli at other databases, the target schema is created on first use.")
}
