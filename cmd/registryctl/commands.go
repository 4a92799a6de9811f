package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tagreturn/tagreturn-server/internal/domain"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

func tagsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage provisioned tags",
	}

	var format string
	importCmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Provision tags from CSV, JSON or YAML manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			tags := service.NewTagService(s.store, tagimport.NewImporter(s.store, s.logger.Logger), service.NoopEmitter{}, s.logger.Logger)

			var total tagimport.Result
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}

				fmtForFile := tagimport.Format(format)
				if fmtForFile == "" {
					if fmtForFile, err = tagimport.FormatFor(path); err != nil {
						_ = f.Close()
						return err
					}
				}

				res, err := tags.Import(cmd.Context(), f, fmtForFile, path)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d created, %d skipped, %d failed\n",
					path, res.Created, res.Skipped, len(res.Failed))
				total.Created += res.Created
				total.Skipped += res.Skipped
				total.Failed = append(total.Failed, res.Failed...)
			}

			if len(args) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "total: %d created, %d skipped, %d failed\n",
					total.Created, total.Skipped, len(total.Failed))
			}
			for _, id := range total.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s\n", id)
			}
			return nil
		},
	}
	importCmd.Flags().StringVarP(&format, "format", "f", "", "Manifest format (csv, json, yaml); inferred from the extension when empty")

	cmd.AddCommand(importCmd)
	return cmd
}

func sweepCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Demote expired subscriptions to inactive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			sweep := service.NewSweepService(s.store, s.reconciler(), service.NoopEmitter{}, s.logger.Logger)
			res, err := sweep.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, demoted %d, failed %d, expired resets %d (%s)\n",
				res.Scanned, res.Demoted, res.Failed, res.ResetsExpired, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func userCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show UUID",
		Short: "Print a user's profile and embedded items as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			profile, err := service.NewUserService(s.store).Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(profile)
		},
	})

	return cmd
}

func inspectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the registry contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			tagCount, err := s.store.CountTags(ctx)
			if err != nil {
				return err
			}
			items, err := s.store.ListItems(ctx)
			if err != nil {
				return err
			}
			expired, err := s.store.ListExpiredSubscriptions(ctx, time.Now())
			if err != nil {
				return err
			}

			byStatus := make(map[domain.ItemStatus]int)
			bySubscription := make(map[domain.SubscriptionStatus]int)
			for _, item := range items {
				byStatus[item.Status]++
				bySubscription[item.Subscription()]++
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Registry Inspection ===")
			fmt.Fprintf(out, "Tags:  %d\n", tagCount)
			fmt.Fprintf(out, "Items: %d\n", len(items))
			for _, st := range []domain.ItemStatus{domain.StatusRegistered, domain.StatusLost, domain.StatusFound} {
				fmt.Fprintf(out, "  %-10s %d\n", st.Label(), byStatus[st])
			}

			fmt.Fprintln(out, "Subscriptions:")
			for _, st := range []domain.SubscriptionStatus{domain.SubscriptionNone, domain.SubscriptionActive, domain.SubscriptionInactive} {
				fmt.Fprintf(out, "  %-10s %d\n", strings.ToLower(string(st)), bySubscription[st])
			}
			fmt.Fprintf(out, "  %-10s %d\n", "expired", len(expired))
			return nil
		},
	}
}
