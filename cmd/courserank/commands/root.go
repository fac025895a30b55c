package commands

import (
	"context"
	"fmt"
	"os"

	"courserank-backend/lib/configutil"
	"courserank-backend/lib/serviceutil"
	"courserank-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	config     Config
)

var rootCmd = &cobra.Command{
	Use:   "courserank",
	Short: "courserank crawls professor ratings and the course catalog into the courserank database.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		err := configutil.LoadDotenv()
		if err != nil {
			serviceutil.Fatal("failed to load .env", err)
		}
		config, err = LoadConfig(configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read, overridden by its .local variant.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enables debug logging and http dumps.")
}

// ExecuteContext runs the cli and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
