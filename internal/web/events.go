package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/remote"
	"github.com/mkpublisher/showcase/internal/session"
)

const keepAliveInterval = 15 * time.Second

type sessionEvent struct {
	Kind remote.AuthEventKind `json:"kind"`
	User *remote.User         `json:"user"`
}

// events streams pushed inserts and this browser's session changes as
// Server-Sent Events. Both subscriptions are released when the client goes
// away.
func (ctl *Controller) events(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}
	ctx := c.Request.Context()
	log := logging.NewLogger(ctx)

	projects, unsubscribe := ctl.hub.Subscribe()
	defer unsubscribe()

	sessionEvents := make(chan sessionEvent, 8)
	state := session.NewState(func(kind remote.AuthEventKind, u *remote.User) {
		select {
		case sessionEvents <- sessionEvent{Kind: kind, User: u}:
		default:
		}
	})
	defer state.Close()

	if sid := ctl.sessions.SID(c.Request); sid != "" {
		sub, err := ctl.sessions.Subscribe(ctx, sid)
		if err != nil {
			log.LogWarnf("events.subscribe", "session events unavailable: %v", err)
		} else {
			if err := state.Init(ctx, func(ctx context.Context) (*remote.Session, error) {
				return ctl.sessions.Load(ctx, sid)
			}); err != nil {
				log.LogWarnf("events.init", "session lookup failed: %v", err)
			}
			state.Watch(sub)
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeEvent(c, "session", sessionEvent{Kind: remote.EventInitialSession, User: state.User()})
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()
		case p, ok := <-projects:
			if !ok {
				return
			}
			writeEvent(c, "project", projectView(p))
			flusher.Flush()
		case ev := <-sessionEvents:
			writeEvent(c, "session", ev)
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data)
}

// projectCard is the JSON the page script turns into a grid card.
type projectCard struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Link     string   `json:"link"`
	Image    string   `json:"image"`
	Featured bool     `json:"featured"`
	Stars    []string `json:"stars"`
	Date     string   `json:"date"`
}

func projectView(p remote.Project) projectCard {
	stars := make([]string, 0, 5)
	for _, s := range starsOf(p) {
		stars = append(stars, s.String())
	}
	return projectCard{
		ID:       p.ID,
		Title:    p.Title,
		Link:     safeURL(p.Link),
		Image:    safeURL(p.Image),
		Featured: p.Featured(),
		Stars:    stars,
		Date:     formatDate(p),
	}
}

// safeURL keeps http(s) and relative URLs. Anything else, e.g. a javascript:
// link, becomes "#" because the card is built by script, not by html/template.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return raw
	}
	return "#"
}
