// Package cli wires the token lifecycle services into the tokenkeeper
// command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/datamat-io/tokenkeeper/internal/adapters/driven/config/file"
	"github.com/datamat-io/tokenkeeper/internal/adapters/driven/oauth"
	storefile "github.com/datamat-io/tokenkeeper/internal/adapters/driven/storage/file"
	storesqlite "github.com/datamat-io/tokenkeeper/internal/adapters/driven/storage/sqlite"
	"github.com/datamat-io/tokenkeeper/internal/core/ports/driven"
	"github.com/datamat-io/tokenkeeper/internal/core/services"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

var version = "dev"

// Flags shared across commands.
var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
	flagStore     string
)

// Services wired by the root command before any subcommand runs.
var (
	tenantStore  driven.TenantStore
	credStore    driven.CredentialStore
	tokenService *services.OAuth2Client
	reporter     *services.ReportService
	closeStore   func() error
)

var rootCmd = &cobra.Command{
	Use:   "tokenkeeper",
	Short: "Keep OAuth2 access tokens valid for unattended jobs",
	Long: `tokenkeeper manages the OAuth2 token lifecycle for unattended data
extraction jobs. After a one-time interactive bootstrap per tenant, every run
gets a valid bearer token without human involvement: expiry is evaluated
against a safety buffer and refreshes happen proactively before tokens die
mid-run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		return wireServices()
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if closeStore != nil {
			return closeStore()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"Directory holding tenant configuration (default ~/.tokenkeeper)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "",
		"Directory holding credential records (default ~/.tokenkeeper/credentials)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "file",
		"Credential store backend: file or sqlite")
}

func wireServices() error {
	closeStore = nil
	tenants, err := configfile.NewTenantStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("open tenant configuration: %w", err)
	}
	tenantStore = tenants

	switch flagStore {
	case "file":
		store, err := storefile.NewStore(flagDataDir)
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		credStore = store
	case "sqlite":
		store, err := storesqlite.NewStore(flagDataDir)
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		credStore = store
		closeStore = store.Close
	default:
		return fmt.Errorf("unknown store backend %q (want file or sqlite)", flagStore)
	}

	exchanger := oauth.NewExchanger()
	tokenService = services.NewOAuth2Client(tenantStore, credStore, exchanger)
	reporter = services.NewReportService(credStore, tokenService)
	return nil
}

// Execute runs the root command with the build version injected by main.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}
