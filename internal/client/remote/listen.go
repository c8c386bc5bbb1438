package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/packsync/packsync/internal/docstore"
	"github.com/packsync/packsync/internal/domain"
)

// Listen opens a websocket live query. Every snapshot frame is handed to
// onUpdate. Server-side query failures arrive as error frames and keep the
// subscription open; a failed dial or a dropped connection is reported once
// and ends the subscription. There is no reconnect: callers re-subscribe.
func (c *Client) Listen(collection string, filters docstore.Filters, onUpdate func([]docstore.Document), onError func(error)) docstore.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &wsSubscription{cancel: cancel}
	go c.runListen(ctx, sub, collection, filters, onUpdate, onError)
	return sub
}

func (c *Client) runListen(ctx context.Context, sub *wsSubscription, collection string, filters docstore.Filters, onUpdate func([]docstore.Document), onError func(error)) {
	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		onError(&domain.SubscriptionError{Collection: collection, Err: err})
	}

	q, err := filtersQuery(filters)
	if err != nil {
		fail(err)
		return
	}
	u := "ws" + strings.TrimPrefix(c.baseURL, "http") + collectionPath(collection) + "/subscribe" + q

	h := http.Header{}
	if tok := c.token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	conn, resp, err := c.dialer.DialContext(ctx, u, h)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			err = responseError(resp.StatusCode, body)
		}
		fail(fmt.Errorf("dial: %w", err))
		return
	}
	if !sub.attach(conn) {
		conn.Close()
		return
	}
	defer conn.Close()
	c.log.Debug("live query open", "collection", collection)

	for {
		var frame docstore.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
				fail(fmt.Errorf("connection lost: %w", err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		switch frame.Type {
		case docstore.FrameSnapshot:
			docs := frame.Documents
			if docs == nil {
				docs = []docstore.Document{}
			}
			onUpdate(docs)
		case docstore.FrameError:
			fail(errors.New(frame.Message))
		default:
			c.log.Warn("unknown live query frame", "type", frame.Type)
		}
	}
}

// wsSubscription cancels a live query. Cancel closes the socket so the
// reading goroutine unblocks, but does not wait for it.
type wsSubscription struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	conn     *websocket.Conn
	canceled bool
}

// attach records the open connection; it returns false if Cancel already ran.
func (s *wsSubscription) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return false
	}
	s.conn = conn
	return true
}

func (s *wsSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.canceled = true
	s.cancel()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
