package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/coach/internal/auth"
	"github.com/guilhermegouw/coach/internal/config"
	"github.com/guilhermegouw/coach/internal/debug"
)

func newStatusCmd(rt *runtime) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session state, backend and file locations",
		Long: `Display the current coach status including:
  - Session state and signed-in user
  - Backend API URL and timeout
  - Config, database and debug log locations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := rt.app.Session
			if verify && session.State() == auth.StatePending {
				if _, err := session.CheckAuth(cmd.Context()); err != nil {
					rt.out.Error(fmt.Sprintf("Stored token was rejected: %v", err))
				}
			}

			cfg := rt.cfg
			out := rt.out
			out.Println(out.Styles().Title.Render(fmt.Sprintf("%s %s", cfg.App.Name, cfg.App.Version)))
			out.Println()

			out.Field("Session", session.State().String())
			if u := session.User(); u != nil {
				out.Field("User", fmt.Sprintf("%s <%s>", u.DisplayName(), u.Email))
			}
			out.Field("API", rt.app.API.BaseURL())
			out.Field("Timeout", cfg.API.Timeout().String())
			out.Println()

			out.Field("Config", rt.cfgPath)
			if rt.cfgPath == config.GlobalConfigPath() && config.IsFirstRun() {
				out.Println(out.Styles().Muted.Render("            (not created yet, using defaults)"))
			}
			out.Field("Database", rt.app.StoragePath())
			if debug.IsEnabled() {
				out.Field("Debug log", debug.LogPath()+" (active)")
			} else {
				out.Field("Debug log", cfg.DebugLogPath())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Verify a stored token with the backend")
	return cmd
}
