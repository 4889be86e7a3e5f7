package cli

import (
	"fmt"
	"strings"

	"mediabot/internal/pagination"
	"mediabot/internal/search"

	"github.com/spf13/cobra"
)

var (
	searchPage int
	searchUser int64
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Run a search as a user would see it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().IntVarP(&searchPage, "page", "p", 1, "Page number")
	cmd.Flags().Int64VarP(&searchUser, "user", "u", 0, "Search as this user id (tier is looked up)")
	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if !pagination.ValidPage(searchPage) {
		return fmt.Errorf("--page must be between 1 and %d", pagination.MaxPage)
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.svc.Search(cmd.Context(), search.Caller{ID: searchUser}, strings.Join(args, " "), searchPage)
	return output(cmd.OutOrStdout(), res, resultsText(res))
}

func resultsText(res search.Results) string {
	var b strings.Builder
	b.WriteString(res.Text)
	for _, it := range res.Items {
		b.WriteString("\n  ")
		b.WriteString(it.ID)
		b.WriteString("  ")
		b.WriteString(it.Name)
		if it.URL != "" {
			b.WriteString("  ")
			b.WriteString(it.URL)
		}
	}
	if res.TotalPages > 1 {
		fmt.Fprintf(&b, "\npage %d/%d", res.Page, res.TotalPages)
	}
	return b.String()
}
