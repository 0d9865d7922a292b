package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iviolo/SkinCycling-Coach/internal/auth"
	jwtauth "github.com/Iviolo/SkinCycling-Coach/internal/auth/jwt"
	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/config"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
)

type serviceOpener func(ctx context.Context) (*domain.Service, func(), error)

type rootOptions struct {
	profile string
	asJSON  bool
}

func newRootCmd(cfg config.Config, open serviceOpener) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "skincyclectl",
		Short:         "Inspect and edit a skin cycling protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "local", "profile ID to act on")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newResolveCmd(opts, open),
		newTodayCmd(opts, open),
		newStreakCmd(opts, open),
		newCompleteCmd(opts, open),
		newReopenCmd(opts, open),
		newSwitchCmd(opts, open),
		newTokenCmd(cfg),
	)
	return root
}

// withService opens the store for the duration of fn.
func withService(cmd *cobra.Command, open serviceOpener, fn func(ctx context.Context, svc *domain.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, svc)
}

func dateFlag(raw string, svc *domain.Service) (calendar.Date, error) {
	if raw == "" {
		return svc.Today(), nil
	}
	return calendar.Parse(raw)
}

func newResolveCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the night scheduled for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				d, err := dateFlag(date, svc)
				if err != nil {
					return err
				}
				res, err := svc.Resolve(ctx, opts.profile, d)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, res, func(w io.Writer) {
					fmt.Fprintf(w, "%s  night %d/%d  %s (%s)\n", res.Date, res.Ordinal, res.EffectiveLength, res.Night.Title, res.Night.ColorTag)
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to resolve (YYYY-MM-DD, default today)")
	return cmd
}

func newTodayCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's routines and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				view, err := svc.BuildToday(ctx, opts.profile, domain.TodayInput{})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, view, func(w io.Writer) {
					fmt.Fprintf(w, "Hi %s, today is %s\n", view.UserName, view.Date)
					fmt.Fprintf(w, "Night %d/%d: %s\n", view.Resolution.Ordinal, view.Resolution.EffectiveLength, view.Resolution.Night.Title)
					fmt.Fprintf(w, "AM %s\n", view.AMState)
					printSteps(w, view.AMSteps)
					fmt.Fprintf(w, "PM %s\n", view.PMState)
					printSteps(w, view.PMSteps)
					fmt.Fprintf(w, "Streak: %d\n", view.Streak)
					if view.RescueEligible {
						fmt.Fprintln(w, "Rescue mode is recommended tonight.")
					}
				})
			})
		},
	}
}

func newStreakCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current evening streak and month stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				stats, err := svc.Stats(ctx, opts.profile, svc.Today())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, stats, func(w io.Writer) {
					fmt.Fprintf(w, "streak %d\n", stats.Streak)
					fmt.Fprintf(w, "month  am %d%%  pm %d%%  sessions %d\n", stats.Month.AMPercent, stats.Month.PMPercent, stats.Month.TotalSessions)
				})
			})
		},
	}
}

func newCompleteCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	var (
		date   string
		period string
		steps  []string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a routine done",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				d, err := dateFlag(date, svc)
				if err != nil {
					return err
				}
				checked := steps
				if all {
					checked, err = displayedStepIDs(ctx, svc, opts.profile, d, p)
					if err != nil {
						return err
					}
				}
				log, err := svc.CompletePeriod(ctx, opts.profile, domain.CompleteInput{
					Date:           d,
					Period:         p,
					CheckedStepIDs: checked,
				})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, log, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s completed (night %d)\n", log.DateKey, p, log.CycleOrdinal)
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to complete (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&period, "period", "pm", "am or pm")
	cmd.Flags().StringSliceVar(&steps, "steps", nil, "checked step IDs")
	cmd.Flags().BoolVar(&all, "all", false, "check every configured step")
	return cmd
}

func displayedStepIDs(ctx context.Context, svc *domain.Service, profileID string, date calendar.Date, p domain.Period) ([]string, error) {
	var steps []domain.RoutineStep
	if p == domain.PeriodAM {
		settings, err := svc.Settings(ctx, profileID)
		if err != nil {
			return nil, err
		}
		steps = settings.AMRoutine
	} else {
		res, err := svc.Resolve(ctx, profileID, date)
		if err != nil {
			return nil, err
		}
		steps = res.Night.Steps
	}
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func newReopenCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	var (
		date   string
		period string
	)
	cmd := &cobra.Command{
		Use:   "reopen",
		Short: "Undo a completed routine",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				d, err := dateFlag(date, svc)
				if err != nil {
					return err
				}
				log, err := svc.ReopenPeriod(ctx, opts.profile, d, p)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, log, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s reopened\n", log.DateKey, p)
				})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to reopen (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&period, "period", "pm", "am or pm")
	return cmd
}

func newSwitchCmd(opts *rootOptions, open serviceOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <ordinal>",
		Short: "Make today a different night of the cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ordinal, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("ordinal must be a number: %w", err)
			}
			return withService(cmd, open, func(ctx context.Context, svc *domain.Service) error {
				res, err := svc.SwitchCycle(ctx, opts.profile, ordinal)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts, res, func(w io.Writer) {
					fmt.Fprintf(w, "today is now night %d/%d: %s\n", res.Ordinal, res.EffectiveLength, res.Night.Title)
				})
			})
		},
	}
}

func newTokenCmd(cfg config.Config) *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--subject is required")
			}
			token, err := jwtauth.Sign(jwtauth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, subject, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "profile ID to embed as sub")
	cmd.Flags().StringSliceVar(&scopes, "scope", auth.AllScopes, "granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printSteps(w io.Writer, steps []domain.RoutineStep) {
	for _, s := range steps {
		fmt.Fprintf(w, "  - %s: %s\n", s.Label, s.ProductRef)
	}
}

func render(w io.Writer, opts *rootOptions, v any, text func(io.Writer)) error {
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
