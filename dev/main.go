package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"courserank-backend/lib/telemetry"
)

func create(recreate, skipStack bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll("dev/.state", 0777)
	if err != nil {
		return err
	}

	if !skipStack {
		err = CreateLocalStack()
		if err != nil {
			return err
		}
	}
	err = CreateStagingDB()
	if err != nil {
		return err
	}
	PrintConfigLocations()

	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	skipStack := flag.Bool("no-stack", false, "do not start the local postgres container")
	flag.Parse()

	telemetry.InitSlog(false)

	err := create(*recreate, *skipStack)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err)
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
