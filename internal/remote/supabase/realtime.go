package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/remote"
)

const (
	defaultHeartbeat   = 25 * time.Second
	defaultJoinTimeout = 10 * time.Second
	writeWait          = 10 * time.Second
	eventsBuffer       = 64
)

// Realtime implements remote.Channel over the Supabase Realtime websocket
// (Phoenix channels, protocol 1.0.0).
type Realtime struct {
	c      *Client
	dialer *websocket.Dialer

	Heartbeat   time.Duration
	JoinTimeout time.Duration
}

// NewRealtime returns a channel bound to the client's project.
func NewRealtime(c *Client) *Realtime {
	return &Realtime{
		c:           c,
		dialer:      websocket.DefaultDialer,
		Heartbeat:   defaultHeartbeat,
		JoinTimeout: defaultJoinTimeout,
	}
}

type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type phxReply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type joinPayload struct {
	Config struct {
		PostgresChanges []changeFilter `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

// changePayload covers both the postgres_changes envelope and the legacy
// per-event payload that carries the record at the top level.
type changePayload struct {
	Data struct {
		Type   string          `json:"type"`
		Table  string          `json:"table"`
		Record json.RawMessage `json:"record"`
	} `json:"data"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

func (r *Realtime) socketURL() (string, error) {
	u, err := url.Parse(r.c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {r.c.anonKey}, "vsn": {"1.0.0"}}.Encode()
	return u.String(), nil
}

// SubscribeInserts joins a channel for INSERT events on table and returns
// once the join is acknowledged.
func (r *Realtime) SubscribeInserts(ctx context.Context, table string) (remote.Subscription, error) {
	const op = "channel.subscribe"
	start := time.Now()

	endpoint, err := r.socketURL()
	if err != nil {
		return nil, fmt.Errorf("%s: invalid url: %w", op, err)
	}

	conn, resp, err := r.dialer.DialContext(ctx, endpoint, http.Header{"apikey": {r.c.anonKey}})
	if err != nil {
		remote.RecordCall(time.Since(start), err)
		if resp != nil {
			return nil, &remote.Error{Op: op, Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("%s: failed to dial realtime: %w", op, err)
	}

	s := &subscription{
		conn:   conn,
		topic:  "realtime:" + table + "_channel",
		table:  table,
		events: make(chan remote.Project, eventsBuffer),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		log:    r.c.log.WithField("topic", "realtime:"+table+"_channel"),
	}

	if err := s.join(ctx, r.c.anonKey, r.JoinTimeout); err != nil {
		remote.RecordCall(time.Since(start), err)
		_ = conn.Close()
		return nil, err
	}
	remote.RecordCall(time.Since(start), nil)
	remote.RecordChannelJoin()

	go s.readLoop()
	go s.heartbeat(r.Heartbeat)
	return s, nil
}

type subscription struct {
	conn  *websocket.Conn
	topic string
	table string
	log   logrus.FieldLogger

	writeMu sync.Mutex
	ref     atomic.Uint64

	events chan remote.Project
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Events() <-chan remote.Project { return s.events }
func (s *subscription) Err() <-chan error             { return s.errs }

func (s *subscription) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

func (s *subscription) send(topic, event string, payload any, joinRef string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	ref := s.nextRef()
	msg := phxMessage{Topic: topic, Event: event, Payload: raw, Ref: &ref}
	if joinRef != "" {
		msg.JoinRef = &joinRef
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ref, s.conn.WriteJSON(msg)
}

func (s *subscription) join(ctx context.Context, token string, timeout time.Duration) error {
	const op = "channel.subscribe"

	var p joinPayload
	p.Config.PostgresChanges = []changeFilter{{Event: "INSERT", Schema: "public", Table: s.table}}
	p.AccessToken = token

	ref, err := s.send(s.topic, "phx_join", p, "")
	if err != nil {
		return fmt.Errorf("%s: failed to send join: %w", op, err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()

	for {
		var msg phxMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%s: waiting for join reply: %w", op, err)
		}
		if msg.Event != "phx_reply" || msg.Ref == nil || *msg.Ref != ref {
			continue
		}
		var reply phxReply
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("%s: invalid join reply: %w", op, err)
		}
		if reply.Status != "ok" {
			return &remote.Error{Op: op, Status: http.StatusBadRequest, Code: reply.Status, Message: strings.TrimSpace(string(reply.Response))}
		}
		return nil
	}
}

func (s *subscription) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.errs <- err
			}
			return
		}

		var msg phxMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.WithError(err).Warn("dropping malformed realtime frame")
			continue
		}
		if msg.Topic != s.topic {
			continue
		}

		switch msg.Event {
		case "postgres_changes", "INSERT":
			p, ok := s.decodeInsert(msg.Payload)
			if !ok {
				continue
			}
			remote.RecordPushedRow()
			select {
			case s.events <- p:
			case <-s.done:
				return
			}
		case "phx_error", "phx_close":
			select {
			case <-s.done:
			default:
				s.errs <- fmt.Errorf("channel %s: %s", s.topic, msg.Event)
			}
			return
		}
	}
}

func (s *subscription) decodeInsert(raw json.RawMessage) (remote.Project, bool) {
	var cp changePayload
	if err := json.Unmarshal(raw, &cp); err != nil {
		s.log.WithError(err).Warn("dropping malformed change payload")
		return remote.Project{}, false
	}

	kind, record := cp.Data.Type, cp.Data.Record
	if len(record) == 0 {
		kind, record = cp.Type, cp.Record
	}
	if kind != "" && kind != "INSERT" {
		return remote.Project{}, false
	}
	if len(record) == 0 {
		return remote.Project{}, false
	}

	p, err := decodeProjectRecord(record)
	if err != nil {
		s.log.WithError(err).Warn("dropping undecodable project record")
		return remote.Project{}, false
	}
	return p, true
}

func (s *subscription) heartbeat(every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			if _, err := s.send("phoenix", "heartbeat", struct{}{}, ""); err != nil {
				s.log.WithError(err).Debug("heartbeat failed")
				return
			}
		}
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_, _ = s.send(s.topic, "phx_leave", struct{}{}, "")
		err = s.conn.Close()
	})
	return err
}

// projectRecord mirrors remote.Project with a loose created_at, since the
// realtime service formats timestamps without a zone for some columns.
type projectRecord struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Link      string          `json:"link"`
	Image     string          `json:"image"`
	Rating    float64         `json:"rating"`
	Category  *string         `json:"category"`
	CreatedAt string          `json:"created_at"`
	UserID    string          `json:"user_id"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
}

func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

func decodeProjectRecord(raw json.RawMessage) (remote.Project, error) {
	var r projectRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return remote.Project{}, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return remote.Project{}, err
	}
	return remote.Project{
		ID:        rawID(r.ID),
		Title:     r.Title,
		Link:      r.Link,
		Image:     r.Image,
		Rating:    r.Rating,
		Category:  r.Category,
		CreatedAt: created,
		UserID:    r.UserID,
	}, nil
}

// rawID accepts both string and numeric identifiers.
func rawID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
