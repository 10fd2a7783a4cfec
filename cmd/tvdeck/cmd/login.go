package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/urlutil"
	"github.com/tvdeck/tvdeck/pkg/duration"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

var loginCreds models.Credentials

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to an Xtream Codes provider",
	Long: `Validate the credentials against the provider and store them for the
next run. Signing in to a different account flushes the cached catalogs;
favorites are kept.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginCreds.ServerBaseURL, "server", "", "provider base URL")
	loginCmd.Flags().StringVar(&loginCreds.Username, "username", "", "account username")
	loginCmd.Flags().StringVar(&loginCreds.Password, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("server")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	loginCreds.ServerBaseURL = urlutil.NormalizeBaseURL(loginCreds.ServerBaseURL)
	if !loginCreds.IsComplete() {
		return fmt.Errorf("server, username, and password are all required")
	}

	a, err := buildApp(cmd.Context(), newConsoleRenderer(os.Stdout))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.coord.Login(cmd.Context(), loginCreds); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", loginCreds.Username)

	var info xtream.AuthInfo
	if ok, err := a.store.GetValue(cmd.Context(), models.StoreUserInfo, "user_info", &info); err == nil && ok {
		if exp := info.UserInfo.ExpirationTime(); !exp.IsZero() {
			fmt.Printf("Subscription expires %s\n", duration.FormatRelative(exp))
		}
	}
	return nil
}
