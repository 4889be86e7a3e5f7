package cli

import (
	"fmt"
	"strconv"

	"mediabot/internal/tier"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "status <user-id>",
		Short: "Show a user's premium status",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "grant <user-id> <days>",
		Short: "Grant or renew premium for a number of days from now",
		Args:  cobra.ExactArgs(2),
		RunE:  runGrant,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show user counts",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	})
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func statusText(userID int64, st tier.Status) string {
	if !st.IsActive {
		return fmt.Sprintf("%d: standard", userID)
	}
	return fmt.Sprintf("%d: premium until %s (%d days left)", userID, st.Expiry.Format("2006-01-02 15:04 MST"), st.DaysLeft)
}

func runStatus(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.svc.TierStatus(cmd.Context(), userID)
	if err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), map[string]interface{}{"user_id": userID, "status": st}, statusText(userID, st))
}

func runGrant(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days < 1 {
		return fmt.Errorf("days must be a positive integer, got %q", args[1])
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.svc.GrantTier(cmd.Context(), userID, days)
	if err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), map[string]interface{}{"user_id": userID, "status": st}, statusText(userID, st))
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.svc.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), st,
		fmt.Sprintf("users: %d\nactive (24h): %d", st.TotalUsers, st.ActiveUsers))
}
