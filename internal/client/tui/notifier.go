package tui

import tea "github.com/charmbracelet/bubbletea"

// Notifier carries change signals and errors from store callbacks into the
// program. Its methods never block, so they are safe to call from a
// synchronizer loop or a subscription goroutine.
type Notifier struct {
	changed chan struct{}
	errs    chan error
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		changed: make(chan struct{}, 1),
		errs:    make(chan error, 8),
	}
}

// Changed records that some data the UI shows has changed. Repeated calls
// before the UI catches up collapse into one.
func (n *Notifier) Changed() {
	select {
	case n.changed <- struct{}{}:
	default:
	}
}

// Error queues err for the status line. Errors beyond the buffer are dropped;
// they are logged by the component that produced them.
func (n *Notifier) Error(err error) {
	select {
	case n.errs <- err:
	default:
	}
}

type changedMsg struct{}

type errMsg struct{ err error }

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-n.changed:
			return changedMsg{}
		case err := <-n.errs:
			return errMsg{err}
		}
	}
}
