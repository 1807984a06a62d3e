package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"focustrack/internal/model"
	"focustrack/internal/tracker"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Subscribe opens a websocket watch for one identity-day. The
// subscription dials in the background and keeps itself connected with
// capped exponential backoff; transport failures surface as events
// with Err set rather than ending the stream.
func (c *Client) Subscribe(ctx context.Context, userID, dateKey string) (tracker.Subscription, error) {
	if _, _, ok := c.creds(); !ok {
		return nil, ErrNotSignedIn
	}

	sctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		client:  c,
		userID:  userID,
		dateKey: dateKey,
		events:  make(chan tracker.SnapshotEvent, 8),
		ctx:     sctx,
		cancel:  cancel,
	}
	go sub.run()
	return sub, nil
}

type subscription struct {
	client  *Client
	userID  string
	dateKey string
	events  chan tracker.SnapshotEvent
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ tracker.Subscription = (*subscription)(nil)

func (s *subscription) Events() <-chan tracker.SnapshotEvent { return s.events }

func (s *subscription) Close() error {
	s.cancel()
	return nil
}

// run dials, reads until the connection drops, reports the drop, and
// redials. A connection that lived long enough resets the backoff.
func (s *subscription) run() {
	defer close(s.events)

	delay := reconnectMin
	for {
		start := time.Now()
		err := s.watchOnce()
		if s.ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("watch stream ended")
		}
		s.client.logger.Debug("watch connection lost", "user_id", s.userID, "date", s.dateKey, "error", err)
		if !s.emit(tracker.SnapshotEvent{Err: err}) {
			return
		}

		if time.Since(start) > reconnectMax {
			delay = reconnectMin
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMax {
			delay = reconnectMax
		}
	}
}

// watchOnce holds one websocket connection open and forwards its
// frames until it fails.
func (s *subscription) watchOnce() error {
	server, token, ok := s.client.creds()
	if !ok {
		return ErrNotSignedIn
	}

	url := wsURL(baseURL(server)) + recordPath(s.userID, s.dateKey) + "/watch"
	dctx, cancel := context.WithTimeout(s.ctx, s.client.timeout)
	conn, _, err := websocket.Dial(dctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	cancel()
	if err != nil {
		return fmt.Errorf("dialing watch: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return fmt.Errorf("reading watch frame: %w", err)
		}

		var frame model.WatchFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("decoding watch frame: %w", err)
		}

		var ev tracker.SnapshotEvent
		if frame.Record != nil {
			rec, err := frame.Record.ToRecord()
			if err != nil {
				return err
			}
			ev.Record = rec
		}
		if !s.emit(ev) {
			return nil
		}
	}
}

func (s *subscription) emit(ev tracker.SnapshotEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// wsURL swaps the HTTP scheme for the matching websocket one.
func wsURL(server string) string {
	switch {
	case strings.HasPrefix(server, "https://"):
		return "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		return "ws://" + strings.TrimPrefix(server, "http://")
	}
	return server
}
