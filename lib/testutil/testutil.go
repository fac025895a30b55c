package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"testing"
	"time"

	"courserank-backend/lib/sqliteutil"
	"courserank-backend/lib/telemetry"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	db, err := sqliteutil.Config{File: dbpath}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	if params.DbSchema != "" {
		_, err = db.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}

	return ServiceResult{DB: db}, func() {
		err := db.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
}

const (
	postgresUser     = "courserank"
	postgresPassword = "courserank"
	postgresDb       = "courserank"
)

// SetupPostgres starts a disposable postgres container and returns its
// connection string. It skips the test with -short or when docker is not
// reachable.
func SetupPostgres(t *testing.T) (string, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     postgresUser,
					"POSTGRES_PASSWORD": postgresPassword,
					"POSTGRES_DB":       postgresDb,
				},
				// postgres restarts once after running init scripts
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(postgresUser, postgresPassword),
		Host:     fmt.Sprintf("%s:%s", host, port.Port()),
		Path:     postgresDb,
		RawQuery: "sslmode=disable",
	}

	return dsn.String(), func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}
