package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdock/internal/tui"
)

var (
	configPath string
	apiURL     string
	statePath  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "taskdock",
	Short: "Terminal client for the task API",
	Long: `taskdock keeps your tasks and tags in sync with a task API server.

Run without arguments to open the terminal UI, or use the subcommands for
scripting. "taskdock serve" starts a local development server.`,
	RunE:          runUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "local state database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runUI(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return tui.Run(cmd.Context(), tui.Options{
		Session:  env.App.Session,
		Tasks:    env.App.Tasks,
		Tags:     env.App.Tags,
		PageSize: env.App.Config.PageSize,
		Logger:   env.App.Log.With().Str("component", "tui").Logger(),
	})
}
