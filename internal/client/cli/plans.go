package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/packsync/packsync/internal/client/activeplan"
	"github.com/packsync/packsync/internal/client/plans"
	"github.com/packsync/packsync/internal/domain"
)

// snapshotTimeout bounds how long a one-shot command waits for the first
// live snapshot.
const snapshotTimeout = 10 * time.Second

var headerStyle = lipgloss.NewStyle().Bold(true)

func newPlansCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plans",
		Aliases: []string{"plan"},
		Short:   "Manage your travel plans",
		GroupID: "travel",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your travel plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := a.watchPlans(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Close()
			all := ctrl.Plans()
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No travel plans yet.")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return lipgloss.NewStyle()
				}).
				Headers("ID", "TITLE", "DATES", "WHERE")
			for _, p := range all {
				t.Row(p.ID, p.Title, dates(p), p.CountryAndCity)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	var in domain.TravelPlan
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a travel plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			in.Title = args[0]
			p, err := a.planController().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s).\n", p.Title, p.ID)
			return nil
		},
	}
	planFlags(add, &in)

	var edit domain.TravelPlan
	var newTitle string
	update := &cobra.Command{
		Use:   "edit <plan-id>",
		Short: "Change a travel plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.watchPlans(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Close()
			p, ok := ctrl.Get(args[0])
			if !ok {
				return fmt.Errorf("no travel plan %s", args[0])
			}
			f := cmd.Flags()
			if f.Changed("title") {
				p.Title = newTitle
			}
			if f.Changed("start") {
				p.StartDate = edit.StartDate
			}
			if f.Changed("end") {
				p.EndDate = edit.EndDate
			}
			if f.Changed("where") {
				p.CountryAndCity = edit.CountryAndCity
			}
			if _, err := ctrl.Update(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q.\n", p.Title)
			return nil
		},
	}
	planFlags(update, &edit)
	update.Flags().StringVar(&newTitle, "title", "", "new title")

	del := &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a travel plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			err := a.planController().Delete(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no travel plan %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func planFlags(cmd *cobra.Command, p *domain.TravelPlan) {
	cmd.Flags().StringVar(&p.StartDate, "start", "", "start date, e.g. \"Jun 1, 2026\"")
	cmd.Flags().StringVar(&p.EndDate, "end", "", "end date")
	cmd.Flags().StringVar(&p.CountryAndCity, "where", "", "country and city")
}

func dates(p domain.TravelPlan) string {
	if p.StartDate == "" && p.EndDate == "" {
		return ""
	}
	return p.StartDate + " - " + p.EndDate
}

// planController returns a controller with a registry private to this
// command; the CLI has no long-lived session to keep an active plan in.
func (a *app) planController(opts ...plans.Option) *plans.Controller {
	opts = append([]plans.Option{plans.WithLogger(a.log)}, opts...)
	return plans.NewController(a.client, a.session, activeplan.New(), opts...)
}

// watchPlans subscribes to the user's plans and waits for the first snapshot.
func (a *app) watchPlans(ctx context.Context) (*plans.Controller, error) {
	if _, err := a.requireUser(); err != nil {
		return nil, err
	}
	first := make(chan struct{}, 1)
	failed := make(chan error, 1)
	ctrl := a.planController(
		plans.WithChange(func([]domain.TravelPlan) {
			select {
			case first <- struct{}{}:
			default:
			}
		}),
		plans.WithErrorHandler(func(err error) {
			var decodeErr *domain.DecodeError
			if errors.As(err, &decodeErr) {
				return
			}
			select {
			case failed <- err:
			default:
			}
		}),
	)
	if err := ctrl.Watch(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	select {
	case <-first:
		return ctrl, nil
	case err := <-failed:
		ctrl.Close()
		return nil, err
	case <-ctx.Done():
		ctrl.Close()
		return nil, fmt.Errorf("waiting for travel plans: %w", ctx.Err())
	}
}
