package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/packsync/packsync/internal/client/activeplan"
	"github.com/packsync/packsync/internal/client/packinglist"
	"github.com/packsync/packsync/internal/client/plans"
	"github.com/packsync/packsync/internal/client/tui"
	"github.com/packsync/packsync/internal/domain"
)

const logFile = "packsync.log"

func newUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ui",
		Short:   "Open the interactive packing view",
		GroupID: "travel",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.requireUser()
			if err != nil {
				return err
			}

			// The screen belongs to the UI; logs go to a file instead.
			f, err := os.OpenFile(filepath.Join(a.home, logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()
			log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))

			n := tui.NewNotifier()
			registry := activeplan.New()
			unsubscribe := registry.Subscribe(func(*domain.TravelPlan) { n.Changed() })
			defer unsubscribe()

			ctrl := plans.NewController(a.client, a.session, registry,
				plans.WithLogger(log),
				plans.WithChange(func([]domain.TravelPlan) { n.Changed() }),
				plans.WithErrorHandler(n.Error),
			)
			defer ctrl.Close()
			stopAuth := a.session.OnAuthStateChanged(ctrl.HandleAuthState)
			defer stopAuth()

			model := tui.New(tui.Deps{
				User:   user,
				Plans:  ctrl,
				Active: registry,
				OpenList: func(plan domain.TravelPlan, n *tui.Notifier) tui.PackingList {
					return packinglist.New(a.client, a.session, plan,
						packinglist.WithLogger(log),
						packinglist.WithRefresh(func([]domain.PackingItem) { n.Changed() }),
						packinglist.WithErrorHandler(n.Error),
					)
				},
			}, n)

			log.Info("ui started", "user_id", user.ID)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
