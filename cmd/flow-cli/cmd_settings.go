package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"jan-server/services/flow-api/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or edit the runtime settings file",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings with secrets masked",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <section.key=value>...",
	Short: "Update settings values",
	Long: `Update one or more values, for example:

  flow-cli settings set flow.session_token=abc global.admin_password=secret`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsShowCmd.Flags().Bool("reveal", false, "Print secrets in clear text")
}

func openSettings(cmd *cobra.Command) (*config.SettingsStore, error) {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return nil, err
	}
	return config.NewSettingsStore(env.cfg.SettingsPath())
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	store, err := openSettings(cmd)
	if err != nil {
		return err
	}

	settings := store.Current()
	if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
		settings.Flow.SessionToken = config.MaskSecret(settings.Flow.SessionToken)
		settings.Flow.CSRFToken = config.MaskSecret(settings.Flow.CSRFToken)
		settings.Global.AdminPassword = config.MaskSecret(settings.Global.AdminPassword)
	}

	if jsonOutput(cmd) {
		return printJSON(settings)
	}
	return toml.NewEncoder(os.Stdout).Encode(settings)
}

// parseAssignments splits section.key=value pairs into per-section maps.
func parseAssignments(args []string) (global, flow map[string]any, err error) {
	global = map[string]any{}
	flow = map[string]any{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, nil, fmt.Errorf("%q is not section.key=value", arg)
		}
		section, key, ok := strings.Cut(strings.TrimSpace(name), ".")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("%q must name a section, e.g. flow.session_token", name)
		}
		switch section {
		case "global":
			global[key] = value
		case "flow":
			flow[key] = value
		default:
			return nil, nil, fmt.Errorf("unknown section %q (want global or flow)", section)
		}
	}
	return global, flow, nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	global, flow, err := parseAssignments(args)
	if err != nil {
		return err
	}
	store, err := openSettings(cmd)
	if err != nil {
		return err
	}
	if err := store.Update(global, flow); err != nil {
		return err
	}
	fmt.Printf("Updated %d setting(s)\n", len(global)+len(flow))
	return nil
}
