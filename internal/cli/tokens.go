package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "mint <file-id>",
		Short: "Print the exchange link for a file, minting its token if needed",
		Args:  cobra.ExactArgs(1),
		RunE:  runMint,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "resolve <token>",
		Short: "Show the file an exchange token refers to",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	})
}

func runMint(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	link, err := a.svc.MintToken(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("mint %s: %w", args[0], err)
	}
	return output(cmd.OutOrStdout(), link, link.URL)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	m, err := a.svc.ResolveToken(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	return output(cmd.OutOrStdout(), m, m.ID+"  "+m.DisplayName())
}
