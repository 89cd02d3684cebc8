package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenant OAuth configurations",
	Long: `Add, list, and remove tenant configurations.

A tenant configuration holds the OAuth application credentials (client_id,
client_secret, endpoints) for one downstream account. Credentials live in a
TOML file per tenant under the config directory; access tokens are stored
separately and are created by 'tokenkeeper bootstrap'.

Examples:
  # Add a tenant interactively (prompts for the client secret)
  tokenkeeper tenant add ACME \
    --client-id "xxx" \
    --authorize-url "https://provider.example/oauth/authorize" \
    --token-url "https://provider.example/oauth/token" \
    --redirect-uri "http://127.0.0.1:8910/callback"

  # List configured tenants
  tokenkeeper tenant list

  # Remove a tenant configuration
  tokenkeeper tenant remove ACME`,
}

var tenantAddCmd = &cobra.Command{
	Use:   "add [tenant]",
	Short: "Add a tenant configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantAdd,
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured tenants",
	RunE:  runTenantList,
}

var tenantRemoveCmd = &cobra.Command{
	Use:   "remove [tenant]",
	Short: "Remove a tenant configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantRemove,
}

// Flags for tenant add.
var (
	tenantClientID     string
	tenantClientSecret string
	tenantRedirectURI  string
	tenantAuthorizeURL string
	tenantTokenURL     string
	tenantScopes       string
	tenantCredsInBody  bool
)

func init() {
	tenantAddCmd.Flags().StringVar(
		&tenantClientID, "client-id", "", "OAuth client ID")
	tenantAddCmd.Flags().StringVar(
		&tenantClientSecret, "client-secret", "", "OAuth client secret (prompted if omitted)")
	tenantAddCmd.Flags().StringVar(
		&tenantRedirectURI, "redirect-uri", "http://127.0.0.1:8910/callback",
		"Loopback redirect URI registered with the provider")
	tenantAddCmd.Flags().StringVar(
		&tenantAuthorizeURL, "authorize-url", "", "Provider authorization endpoint")
	tenantAddCmd.Flags().StringVar(
		&tenantTokenURL, "token-url", "", "Provider token endpoint")
	tenantAddCmd.Flags().StringVar(
		&tenantScopes, "scopes", "", "OAuth scopes (comma-separated)")
	tenantAddCmd.Flags().BoolVar(
		&tenantCredsInBody, "credentials-in-body", false,
		"Send client credentials in the request body instead of HTTP Basic auth")

	tenantCmd.AddCommand(tenantAddCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantRemoveCmd)
	rootCmd.AddCommand(tenantCmd)
}

func runTenantAdd(cmd *cobra.Command, args []string) error {
	secret := tenantClientSecret
	if secret == "" {
		var err error
		secret, err = promptSecret(cmd, "Client secret: ")
		if err != nil {
			return err
		}
	}

	creds := domain.TenantCredentials{
		Tenant:            args[0],
		ClientID:          tenantClientID,
		ClientSecret:      secret,
		RedirectURI:       tenantRedirectURI,
		AuthorizeURL:      tenantAuthorizeURL,
		TokenURL:          tenantTokenURL,
		Scope:             splitScopes(tenantScopes),
		CredentialsInBody: tenantCredsInBody,
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	if err := tenantStore.Save(creds); err != nil {
		return err
	}
	cmd.Printf("Tenant %s configured. Run 'tokenkeeper bootstrap %s' to authorize.\n",
		creds.Tenant, creds.Tenant)
	return nil
}

func runTenantList(cmd *cobra.Command, _ []string) error {
	tenants, err := tenantStore.List()
	if err != nil {
		return err
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants configured.")
		return nil
	}
	for _, tenant := range tenants {
		cmd.Println(tenant)
	}
	return nil
}

func runTenantRemove(cmd *cobra.Command, args []string) error {
	if err := tenantStore.Delete(args[0]); err != nil {
		return err
	}
	cmd.Printf("Tenant %s removed.\n", args[0])
	return nil
}

// promptSecret reads a secret without echo when stdin is a terminal, falling
// back to a plain line read for piped input.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitScopes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
