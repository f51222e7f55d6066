package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/progress"
	"github.com/trungkien100823/koicourse/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "koicourse",
	Short: "Course progress tracker for the koi feng-shui learning platform",
	Long: "koicourse reconciles locally cached chapter and quiz progress with the\n" +
		"course backend and reports the authoritative completion state per course.",
	SilenceUsage: true,
}

func Execute() error {
	// A .env next to the binary is a convenience for development setups.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides KOICOURSE_DB env var)")
	rootCmd.PersistentFlags().String("api-url", "", "Backend base URL (overrides KOICOURSE_API_URL env var)")
	rootCmd.PersistentFlags().String("owner", "", "Owner (learner account) id (overrides KOICOURSE_OWNER env var)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime bundles the wired components a command needs.
type runtime struct {
	store  *store.Store
	api    gateway.API
	rec    *progress.Reconciler
	owner  string
	logger *zap.Logger
}

func (r *runtime) close() {
	_ = r.logger.Sync()
	_ = r.store.Close()
}

// newRuntime wires the store, gateway and reconciler from flags with env
// fallback.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	owner := flagOrEnv(cmd, "owner", "KOICOURSE_OWNER")
	if owner == "" {
		st.Close()
		return nil, fmt.Errorf("no owner id: set --owner or KOICOURSE_OWNER")
	}

	baseURL := flagOrEnv(cmd, "api-url", "KOICOURSE_API_URL")
	if baseURL == "" {
		st.Close()
		return nil, fmt.Errorf("no backend URL: set --api-url or KOICOURSE_API_URL")
	}

	client := gateway.NewClient(gateway.DefaultConfig(baseURL), tokenFromEnv, logger)
	api := gateway.WithRetry(client, gateway.DefaultRetryConfig())

	return &runtime{
		store:  st,
		api:    api,
		rec:    progress.NewReconciler(st, api, logger),
		owner:  owner,
		logger: logger,
	}, nil
}

// tokenFromEnv supplies the bearer token. Session storage is owned by the
// mobile shell; the CLI reads the exported token directly.
func tokenFromEnv() (string, error) {
	return os.Getenv("KOICOURSE_TOKEN"), nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then KOICOURSE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
