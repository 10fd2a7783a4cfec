package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and wipe the local cache",
	Long:  "Remove the stored credentials and every cached catalog, favorites included.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context(), newConsoleRenderer(os.Stdout))
		if err != nil {
			return err
		}
		defer a.close()

		a.coord.Logout(cmd.Context())
		fmt.Println("Signed out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
