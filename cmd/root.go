// Package cmd provides the CLI commands for coach.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/coach/internal/app"
	"github.com/guilhermegouw/coach/internal/bridge"
	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/debug"
	"github.com/guilhermegouw/coach/internal/guard"
	"github.com/guilhermegouw/coach/internal/ui"
)

// Command annotations.
const (
	// annotationRoute names the guard route a command navigates to.
	annotationRoute = "coach.route"
	// annotationRequiresAuth marks a route as protected.
	annotationRequiresAuth = "coach.requires_auth"
	// annotationNoApp skips building the session context.
	annotationNoApp = "coach.no_app"
)

// ErrLoginRequired is returned when a protected command runs without a valid session.
var ErrLoginRequired = errors.New("not logged in: run `coach login` first")

// runtime is the state shared by every command of one invocation.
type runtime struct {
	cfg     *config.Config
	cfgPath string
	app     *app.App
	out     *ui.Printer
	stdin   io.Reader
	debugOn bool
}

func newRootCmd() (*cobra.Command, *runtime) {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Command-line client for Coach AI",
		Long: `coach signs you in to a Coach AI backend and manages your coaching
conversations from the terminal.

Start with:
  coach login
  coach conversations new "I want to get better at public speaking"
  coach conversations list`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rt.setup,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging to the data directory")
	cmd.PersistentFlags().String("api-url", "", "Backend API base URL for this run")
	cmd.PersistentFlags().String("config", "", "Use this config file instead of the global and project files")

	cmd.AddCommand(
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newStatusCmd(rt),
		newConversationsCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(rt),
	)

	return cmd, rt
}

// setup loads configuration, builds the App and runs the guard for the
// command being executed.
func (rt *runtime) setup(cmd *cobra.Command, _ []string) error {
	rt.out = ui.NewPrinter(cmd.OutOrStdout())
	rt.stdin = cmd.InOrStdin()

	cfg, err := rt.loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" { //nolint:errcheck // flag is registered on root
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--api-url: %w", err)
		}
	}
	rt.cfg = cfg

	debugMode, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("getting debug flag: %w", err)
	}
	if debugMode || cfg.Options.Debug {
		logPath := cfg.DebugLogPath()
		if debugErr := debug.Enable(logPath); debugErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to enable debug logging: %v\n", debugErr)
		} else {
			rt.debugOn = true
			fmt.Fprintf(os.Stderr, "Debug: %s\n", logPath)
		}
	}
	debug.Log("[cmd] running %q", cmd.CommandPath())

	// Config commands must work on a broken config so it can be repaired.
	if annotation(cmd, annotationNoApp) != "" {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config (fix it with `coach config set`): %w", err)
	}

	var opts []app.Option
	if rt.debugOn {
		opts = append(opts, app.WithEventSender(bridge.DebugSender))
	}
	a, err := app.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	rt.app = a

	route, ok := routeFor(cmd)
	if !ok {
		return nil
	}
	decision := a.Navigate(cmd.Context(), route)
	switch decision.Redirect {
	case "":
		return nil
	case guard.RouteLogin:
		return ErrLoginRequired
	default:
		who := "someone"
		if u := a.Session.User(); u != nil {
			who = u.DisplayName()
		}
		return fmt.Errorf("already logged in as %s: run `coach logout` first", who)
	}
}

// loadConfig reads --config when given, else the standard locations.
func (rt *runtime) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("getting config flag: %w", err)
	}
	if path != "" {
		rt.cfgPath = path
		return config.LoadFromFile(path)
	}
	rt.cfgPath = config.GlobalConfigPath()
	return config.Load()
}

// close releases the App and the debug log.
func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			debug.Error("cmd", err, "closing app")
		}
		rt.app = nil
	}
	if rt.debugOn {
		debug.Disable()
		rt.debugOn = false
	}
}

// routeFor derives the guard route of cmd from the nearest annotated ancestor.
func routeFor(cmd *cobra.Command) (guard.Route, bool) {
	name := annotation(cmd, annotationRoute)
	if name == "" {
		return guard.Route{}, false
	}
	return guard.Route{
		Name:         name,
		RequiresAuth: annotation(cmd, annotationRequiresAuth) == "true",
	}, true
}

func annotation(cmd *cobra.Command, key string) string {
	for c := cmd; c != nil; c = c.Parent() {
		if v, ok := c.Annotations[key]; ok {
			return v
		}
	}
	return ""
}

// Execute runs the root command.
func Execute() error {
	cmd, rt := newRootCmd()
	defer rt.close()
	return cmd.Execute()
}
