package cli

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	callback "github.com/datamat-io/tokenkeeper/internal/adapters/driving/oauth"
	"github.com/datamat-io/tokenkeeper/internal/core/services"
	"github.com/datamat-io/tokenkeeper/internal/logger"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap [tenant]",
	Short: "Authorize a tenant interactively (one-time)",
	Long: `Run the one-time authorization code flow for a tenant.

Opens the provider's consent page in a browser and receives the authorization
code on a loopback callback server. The resulting tokens are persisted;
afterwards unattended runs refresh themselves without human involvement.

If no browser is available, pass --manual and paste the code from the
redirected URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runBootstrap,
}

var (
	bootstrapManual  bool
	bootstrapTimeout time.Duration
)

func init() {
	bootstrapCmd.Flags().BoolVar(&bootstrapManual, "manual", false,
		"Do not start a callback server; paste the authorization code by hand")
	bootstrapCmd.Flags().DurationVar(&bootstrapTimeout, "timeout", 5*time.Minute,
		"How long to wait for the authorization callback")
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	tenant := args[0]

	creds, err := tenantStore.Get(tenant)
	if err != nil {
		return err
	}

	state := services.NewState()
	authorizeURL := services.BuildAuthorizeURL(*creds, state)

	var code string
	if bootstrapManual {
		code, err = manualCode(cmd, authorizeURL)
	} else {
		code, err = callbackCode(cmd, creds.RedirectURI, state, authorizeURL)
	}
	if err != nil {
		return err
	}

	if err := tokenService.Bootstrap(cmd.Context(), tenant, code); err != nil {
		return err
	}
	cmd.Printf("Tenant %s authorized. Unattended refresh is active.\n", tenant)
	return nil
}

func callbackCode(cmd *cobra.Command, redirectURI, state, authorizeURL string) (string, error) {
	port, path, err := callback.ParseRedirect(redirectURI)
	if err != nil {
		return "", err
	}

	server := callback.NewCallbackServer(port, path, state)
	if err := server.Start(); err != nil {
		return "", err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stopping callback server: %v", err)
		}
	}()

	cmd.Println("Opening the authorization page in your browser...")
	cmd.Printf("If it does not open, visit:\n\n  %s\n\n", authorizeURL)
	if err := callback.OpenBrowser(authorizeURL); err != nil {
		logger.Debug("browser launch failed: %v", err)
	}

	cmd.Println("Waiting for the authorization callback...")
	return server.WaitForCode(bootstrapTimeout)
}

func manualCode(cmd *cobra.Command, authorizeURL string) (string, error) {
	cmd.Printf("Visit the following URL and authorize access:\n\n  %s\n\n", authorizeURL)
	cmd.Print("Paste the authorization code: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
