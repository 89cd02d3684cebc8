package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datamat-io/tokenkeeper/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [tenant]",
	Short: "Show credential state without touching the network",
	Long: `Report credential presence, state and remaining validity for one tenant
or for every configured tenant. Status only reads the local store; it never
contacts the authorization server, so it is safe in tight monitoring loops.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	tenants := args
	if len(tenants) == 0 {
		all, err := tenantStore.List()
		if err != nil {
			return err
		}
		tenants = all
	}
	if len(tenants) == 0 {
		cmd.Println("No tenants configured.")
		return nil
	}

	for _, tenant := range tenants {
		status, err := reporter.Status(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		printStatus(cmd, status)
	}
	return nil
}

func printStatus(cmd *cobra.Command, status *domain.TenantStatus) {
	cmd.Printf("%s: %s\n", status.Tenant, status.State)
	if status.State == domain.StateUnbootstrapped {
		cmd.Printf("  no credential stored; run 'tokenkeeper bootstrap %s'\n", status.Tenant)
		return
	}
	cmd.Printf("  access token:  %s\n", presence(status.HasAccessToken))
	cmd.Printf("  refresh token: %s\n", presence(status.HasRefreshToken))
	cmd.Printf("  expires at:    %s\n", status.ExpiresAt.Format(time.RFC3339))
	cmd.Printf("  remaining:     %s\n", status.Remaining.Round(time.Second))
	if len(status.Scope) > 0 {
		cmd.Printf("  scope:         %v\n", status.Scope)
	}
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

var healthCmd = &cobra.Command{
	Use:   "health [tenant]",
	Short: "Check that a tenant's credential actually works",
	Long: `Compose the local status check with one live token acquisition. Exits
non-zero when the credential is unusable: degraded means the authorization
server rejected or could not serve the refresh and a retry may recover;
needs_bootstrap means a human has to re-authorize the tenant.`,
	Args: cobra.ExactArgs(1),
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	report, err := reporter.Health(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printStatus(cmd, &report.TenantStatus)
	cmd.Printf("  health:        %s\n", report.Health)
	if report.LiveErr != "" {
		cmd.Printf("  last error:    %s\n", report.LiveErr)
	}

	switch report.Health {
	case domain.HealthOK:
		return nil
	case domain.HealthNeedsBootstrap:
		return &ExitError{Code: 2, Err: fmt.Errorf("tenant %s needs bootstrap", args[0])}
	default:
		return &ExitError{Code: 1, Err: fmt.Errorf("tenant %s is degraded", args[0])}
	}
}
