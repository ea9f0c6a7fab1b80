// Package realtime fans pushed project inserts out to the catalog and to the
// live browser streams.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mkpublisher/showcase/internal/catalog"
	"github.com/mkpublisher/showcase/internal/remote"
)

const listenerBuffer = 16

// Hub owns the single insert subscription of the process.
type Hub struct {
	channel  remote.Channel
	projects remote.Projects
	catalog  *catalog.State
	log      logrus.FieldLogger

	mu        sync.Mutex
	sub       remote.Subscription
	cancel    context.CancelFunc
	done      chan struct{}
	listeners map[chan remote.Project]struct{}
	unmounted bool
}

func NewHub(b remote.Backend, cat *catalog.State, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		channel:   b.Channel,
		projects:  b.Projects,
		catalog:   cat,
		log:       log.WithField("component", "realtime"),
		listeners: make(map[chan remote.Project]struct{}),
	}
}

// Mount subscribes to inserts and then loads the catalog. Inserts that arrive
// during the load are held by the catalog and appended after the fetched list.
// A failed subscription still loads the catalog, without live updates; a
// failed load leaves the catalog in its error state. Either error is returned.
func (h *Hub) Mount(ctx context.Context) error {
	var subErr error
	sub, err := h.channel.SubscribeInserts(ctx, remote.TableProjects)
	if err != nil {
		subErr = fmt.Errorf("subscribe to %s: %w", remote.TableProjects, err)
		h.log.WithError(err).Error("insert subscription failed; live updates disabled")
	} else {
		runCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		h.mu.Lock()
		h.sub, h.cancel, h.done = sub, cancel, done
		h.mu.Unlock()

		go func() {
			defer close(done)
			h.catalog.Run(runCtx, sub.Events(), h.broadcast)
		}()
		go h.watchErr(runCtx, sub)
	}

	if err := h.catalog.Load(ctx, h.projects); err != nil {
		h.log.WithError(err).Error("initial project fetch failed")
		return errors.Join(subErr, fmt.Errorf("load catalog: %w", err))
	}
	h.log.WithField("projects", h.catalog.Len()).Info("catalog loaded")
	return subErr
}

// watchErr logs the one transport error of sub. The channel is not rejoined.
func (h *Hub) watchErr(ctx context.Context, sub remote.Subscription) {
	select {
	case <-ctx.Done():
	case err, ok := <-sub.Err():
		if ok && err != nil {
			h.log.WithError(err).Warn("insert subscription ended; live updates stopped")
		}
	}
}

// Apply adds a project created by this process to the catalog and, when it is
// new, sends it to the listeners. Its pushed copy is then a duplicate and is
// dropped by the update loop, so each project is broadcast once.
func (h *Hub) Apply(p remote.Project) bool {
	if !h.catalog.Apply(p) {
		return false
	}
	h.broadcast(p)
	return true
}

func (h *Hub) broadcast(p remote.Project) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners {
		select {
		case ch <- p:
		default:
			h.log.WithField("project_id", p.ID).Debug("listener behind; dropping event")
		}
	}
}

// Subscribe registers a listener for applied inserts. The returned func
// removes it and closes the channel. After Unmount the channel is closed.
func (h *Hub) Subscribe() (<-chan remote.Project, func()) {
	ch := make(chan remote.Project, listenerBuffer)

	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.listeners[ch]; ok {
				delete(h.listeners, ch)
				close(ch)
			}
		})
	}
}

// Listeners returns the number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Unmount closes the subscription, waits for the update loop to stop and
// closes every listener. It is safe to call more than once.
func (h *Hub) Unmount() error {
	h.mu.Lock()
	if h.unmounted {
		h.mu.Unlock()
		return nil
	}
	h.unmounted = true
	sub, cancel, done := h.sub, h.cancel, h.done
	h.mu.Unlock()

	var err error
	if cancel != nil {
		cancel()
	}
	if sub != nil {
		err = sub.Close()
	}
	if done != nil {
		<-done
	}

	h.mu.Lock()
	for ch := range h.listeners {
		delete(h.listeners, ch)
		close(ch)
	}
	h.mu.Unlock()
	return err
}
