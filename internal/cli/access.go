package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tempopilot/coach-gateway/internal/config"
	"github.com/tempopilot/coach-gateway/internal/store"
)

// newAccessCmd groups the operator commands that manage tokens, tester
// cohort membership and feature flags in the gateway database.
func newAccessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Manage API tokens, testers and feature flags",
	}

	cmd.AddCommand(newAccessTokenCmd())
	cmd.AddCommand(newAccessTesterCmd())
	cmd.AddCommand(newAccessFlagCmd())
	return cmd
}

func openAccessStore() (*store.AccessStore, func() error, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return store.NewAccessStore(db), db.Close, nil
}

func newAccessTokenCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "token <token> [user-id]",
		Short: "Register or revoke an API token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeDB, err := openAccessStore()
			if err != nil {
				return err
			}
			defer closeDB()

			if revoke {
				if err := s.DeleteToken(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Println("token revoked")
				return nil
			}
			if len(args) != 2 {
				return fmt.Errorf("user-id required when registering a token")
			}
			if err := s.UpsertToken(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("token registered for %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke the token instead of registering it")
	return cmd
}

func newAccessTesterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tester <user-id> <true|false>",
		Short: "Set a user's tester cohort membership",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			isTester, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("parsing tester value: %w", err)
			}

			s, closeDB, err := openAccessStore()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := s.SetTester(cmd.Context(), args[0], isTester); err != nil {
				return err
			}
			fmt.Printf("tester=%v for %s\n", isTester, args[0])
			return nil
		},
	}
}

func newAccessFlagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flag <name> <true|false>",
		Short: "Enable or disable a feature flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("parsing flag value: %w", err)
			}

			s, closeDB, err := openAccessStore()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := s.SetFlag(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			fmt.Printf("flag %s=%v\n", args[0], enabled)
			return nil
		},
	}
}
