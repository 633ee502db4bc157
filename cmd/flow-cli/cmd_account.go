package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/credentials"
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/retry"
	"jan-server/services/flow-api/internal/infrastructure/cache"
	"jan-server/services/flow-api/internal/infrastructure/flowclient"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the account balance and paygate tier",
	RunE:  runCredits,
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect and create upstream projects",
}

var projectLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recently created project",
	RunE:  runProjectLatest,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	RunE:  runProjectCreate,
}

func init() {
	projectCmd.AddCommand(projectLatestCmd)
	projectCmd.AddCommand(projectCreateCmd)

	projectCreateCmd.Flags().String("title", "", "Project title (default: current time)")
}

// upstream bundles a client with the resolved credentials.
type upstream struct {
	client *flowclient.Client
	creds  flow.Credentials
}

func newUpstream(cmd *cobra.Command, env *environment) (*upstream, error) {
	settings, err := config.NewSettingsStore(env.cfg.SettingsPath())
	if err != nil {
		return nil, err
	}
	resolver := credentials.NewResolver(
		credentials.NewSettingsSource(settings),
		credentials.NewEnvSource(env.cfg),
	)
	client := flowclient.NewClient(flowclient.Config{
		Timeout:     env.cfg.UpstreamTimeout,
		RetryPolicy: retry.UpstreamPolicy(env.cfg.RetryBaseDelay, env.cfg.RetryMaxAttempts),
		PaygateTier: env.cfg.UserPaygateTier,
	}, cache.NewProjectLocker(nil, env.cfg.ProjectLockTTL), env.log)
	creds, err := resolver.RequireSession(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &upstream{client: client, creds: creds}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCredits(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	up, err := newUpstream(cmd, env)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	token, err := up.client.GetAccessToken(ctx, up.creds)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}
	credits, err := up.client.GetCredits(ctx, token)
	if err != nil {
		return fmt.Errorf("get credits: %w", err)
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]any{
			"credits":           credits.Credits,
			"user_paygate_tier": credits.UserPaygateTier,
		})
	}
	fmt.Printf("Credits: %d\n", credits.Credits)
	fmt.Printf("Tier:    %s\n", credits.UserPaygateTier)
	return nil
}

func runProjectLatest(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	up, err := newUpstream(cmd, env)
	if err != nil {
		return err
	}

	project, ok, err := up.client.GetLatestProject(cmd.Context(), up.creds)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if !ok {
		fmt.Println("No projects yet. Create one with: flow-cli project create")
		return nil
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]string{
			"project_id":    project.ID,
			"creation_time": project.CreationTime,
		})
	}
	fmt.Printf("Project: %s\n", project.ID)
	fmt.Printf("Created: %s\n", project.CreationTime)
	return nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	up, err := newUpstream(cmd, env)
	if err != nil {
		return err
	}

	title, _ := cmd.Flags().GetString("title")
	id, err := up.client.CreateProject(cmd.Context(), up.creds, title)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if jsonOutput(cmd) {
		return printJSON(map[string]string{"project_id": id})
	}
	fmt.Printf("Created project %s\n", id)
	return nil
}
