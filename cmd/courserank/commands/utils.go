package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"courserank-backend/lib/pagesource"
	"courserank-backend/lib/restyutil"
	"courserank-backend/lib/serviceutil"
	"courserank-backend/lib/sqliteutil"
	"courserank-backend/services/staging"
	"courserank-backend/services/staging/db"
	"courserank-backend/services/target"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func openStaging() (*sql.DB, staging.Store) {
	database, err := config.Staging.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open staging db", err)
	}
	err = sqliteutil.Migrate(database, db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to create staging schema", err)
	}
	return database, staging.NewStore(database)
}

func openTarget(ctx context.Context) *target.Store {
	if config.Target.Dsn == "" {
		serviceutil.Fatal("no target database", fmt.Errorf("set target.dsn or DATABASE_URL"))
	}
	store, err := target.Open(ctx, config.Target.Dsn)
	if err != nil {
		serviceutil.Fatal("failed to connect to target db", err)
	}
	err = store.EnsureSchema(ctx)
	if err != nil {
		store.Close()
		serviceutil.Fatal("failed to create target schema", err)
	}
	return store
}

func launchBrowser(ctx context.Context) *pagesource.RodPage {
	page, err := pagesource.LaunchRod(ctx, config.Browser)
	if err != nil {
		serviceutil.Fatal("failed to launch browser", err)
	}
	return page
}

// httpOutput dumps raw http exchanges under the dev state directory, only
// when verbose.
func httpOutput(client string) restyutil.InstrumentOutput {
	if !verbose {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput("<dev_state>/resty/" + client)
	if err != nil {
		serviceutil.Fatal("failed to create http dump directory", err)
	}
	return out
}
