package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [user_id]",
	Short: "Start a session and remember its token",
	Args:  cobra.ExactArgs(1),
	Run:   runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current session",
	Run:   runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	session, err := app.Auth.SignIn(ctx, args[0])
	if err != nil {
		fail(app, "Login failed", err)
	}

	role, err := app.Roles.ResolveRole(ctx)
	if err != nil {
		fmt.Printf("Signed in as %s (no role: %s)\n", session.UserID, userMessage(err))
		return
	}
	fmt.Printf("Signed in as %s (%s) until %s\n", session.UserID, role, session.ExpiresAt.Format("2006-01-02 15:04"))
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()
	app := openApp(ctx, cfg)
	defer app.Close()

	if err := app.Auth.SignOut(ctx); err != nil {
		fail(app, "Logout failed", err)
	}
	fmt.Println("Signed out")
}
