package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/packsync/packsync/internal/client/packinglist"
	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

func newItemsCommand(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Work on a travel plan's packing list",
		GroupID: "travel",
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", "", "user id of the plan's creator, for plans shared with you")

	list := &cobra.Command{
		Use:   "list <plan-id>",
		Short: "Show the packing list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFor(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			l, err := a.openList(cmd.Context(), plan)
			if err != nil {
				return err
			}
			defer l.sync.Close()

			items := l.sync.Items()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to pack yet.")
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
				Headers("ID", "", "ITEM", "QTY", "PACKED BY")
			for _, it := range items {
				box := "[ ]"
				if it.IsPacked {
					box = "[x]"
				}
				t.Row(it.ID, box, it.Name, it.ItemNumber, it.IsPackedBy)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	var qty string
	add := &cobra.Command{
		Use:   "add <plan-id> <name>",
		Short: "Add an item to pack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFor(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			item, err := packinglist.NewEditor(a.client, a.session, plan).Add(cmd.Context(), args[1], qty)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s).\n", item.Name, item.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&qty, "qty", "n", "1", "how many to pack")

	var newName, newQty string
	edit := &cobra.Command{
		Use:   "edit <plan-id> <item-id>",
		Short: "Rename an item or change its quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFor(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			l, err := a.openList(cmd.Context(), plan)
			if err != nil {
				return err
			}
			l.sync.Close()

			item, ok := findItem(l.sync.Items(), args[1])
			if !ok {
				return fmt.Errorf("no item %s on this list", args[1])
			}
			if cmd.Flags().Changed("name") {
				item.Name = newName
			}
			if cmd.Flags().Changed("qty") {
				item.ItemNumber = newQty
			}
			if _, err := packinglist.NewEditor(a.client, a.session, plan).Update(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s.\n", item.Name)
			return nil
		},
	}
	edit.Flags().StringVar(&newName, "name", "", "new name")
	edit.Flags().StringVarP(&newQty, "qty", "n", "", "new quantity")

	del := &cobra.Command{
		Use:   "delete <plan-id> <item-id>",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFor(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			if err := packinglist.NewEditor(a.client, a.session, plan).Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <plan-id> <item-id>",
		Short: "Mark an item packed, or unpacked again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.planFor(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			l, err := a.openList(cmd.Context(), plan)
			if err != nil {
				return err
			}
			defer l.sync.Close()

			item, err := l.sync.Toggle(args[1])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no item %s on this list", args[1])
			}
			if err != nil {
				return err
			}
			if err := l.settle(cmd.Context()); err != nil {
				return err
			}
			if item.IsPacked {
				fmt.Fprintf(cmd.OutOrStdout(), "Packed %s.\n", item.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %s.\n", item.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del, toggle)
	return cmd
}

// planFor resolves the plan a packing list belongs to. Plans created by
// someone else cannot be read, so their creator is taken from owner.
func (a *app) planFor(ctx context.Context, id, owner string) (domain.TravelPlan, error) {
	if _, err := a.requireUser(); err != nil {
		return domain.TravelPlan{}, err
	}
	if owner != "" {
		return domain.TravelPlan{ID: id, CreatorID: owner}, nil
	}
	doc, err := a.client.Get(ctx, domain.TravelPlansCollection, id)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return domain.TravelPlan{}, fmt.Errorf("plan %s belongs to someone else: pass --owner <their user id>", id)
	case errors.Is(err, domain.ErrNotFound):
		return domain.TravelPlan{}, fmt.Errorf("no travel plan %s", id)
	case err != nil:
		return domain.TravelPlan{}, err
	}
	plan, _ := domain.DecodeTravelPlan(doc.ID, doc.Fields)
	return plan, nil
}

// liveList is a started Synchronizer plus the signals a one-shot command
// needs to wait on.
type liveList struct {
	sync      *packinglist.Synchronizer
	refreshed chan struct{}
	failed    chan error
	written   chan error
}

// writeNotifier reports the outcome of every SetFields to written.
type writeNotifier struct {
	docstore.LiveStore
	written chan<- error
}

func (w writeNotifier) SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	err := w.LiveStore.SetFields(ctx, collection, id, fields, merge)
	select {
	case w.written <- err:
	default:
	}
	return err
}

// openList starts a synchronizer for plan and waits for its first snapshot.
func (a *app) openList(ctx context.Context, plan domain.TravelPlan) (*liveList, error) {
	l := &liveList{
		refreshed: make(chan struct{}, 1),
		failed:    make(chan error, 1),
		written:   make(chan error, 1),
	}
	store := writeNotifier{LiveStore: a.client, written: l.written}
	l.sync = packinglist.New(store, a.session, plan,
		packinglist.WithLogger(a.log),
		packinglist.WithRefresh(func([]domain.PackingItem) {
			select {
			case l.refreshed <- struct{}{}:
			default:
			}
		}),
		packinglist.WithErrorHandler(func(err error) {
			var decodeErr *domain.DecodeError
			if errors.As(err, &decodeErr) {
				a.log.Warn("malformed packing item", "error", err)
				return
			}
			select {
			case l.failed <- err:
			default:
			}
		}),
	)
	if err := l.sync.Start(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	select {
	case <-l.refreshed:
		return l, nil
	case err := <-l.failed:
		l.sync.Close()
		return nil, err
	case <-ctx.Done():
		l.sync.Close()
		return nil, fmt.Errorf("waiting for packing list: %w", ctx.Err())
	}
}

// settle waits for the toggle write issued by the synchronizer to finish.
func (l *liveList) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	select {
	case err := <-l.written:
		if err != nil {
			return fmt.Errorf("saving the change failed, it was undone: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for the change to be saved: %w", ctx.Err())
	}
}

func findItem(items []domain.PackingItem, id string) (domain.PackingItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.PackingItem{}, false
}
