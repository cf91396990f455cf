// Package services – Reconciler and session registry
//
// One Reconciler runs per active viewer. It recomputes the viewer's
// chat list from the shared store immediately on start, on every tick,
// and whenever another component invalidates the session after a
// write. A failed recompute keeps the previous list: staleness is
// visible, a flickering empty sidebar is not.
package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
	"github.com/sparkchat/sparkd/internal/store"
)

// DefaultSyncInterval matches the poll cadence the chat list was
// originally refreshed at.
const DefaultSyncInterval = 2 * time.Second

var reconcilerRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "spark_reconciler_runs_total",
		Help: "Chat list recomputes per outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(reconcilerRuns)
}

// Reconciler keeps one viewer's derived chat list in sync with the
// shared store.
type Reconciler struct {
	viewer   string
	st       *store.Store
	interval time.Duration

	mu    sync.RWMutex
	chats []domain.Chat

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewReconciler builds a reconciler for viewer. Call Start to begin
// the sync loop.
func NewReconciler(viewer string, st *store.Store, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Reconciler{
		viewer:   viewer,
		st:       st,
		interval: interval,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the first recompute synchronously, so a snapshot taken
// right after Start reflects the store, then launches the tick loop.
func (r *Reconciler) Start() {
	r.recompute()
	go r.loop()
}

// Stop terminates the sync loop and waits for it to exit.
func (r *Reconciler) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
}

// Invalidate requests an immediate recompute. It never blocks; a kick
// while one is already pending is folded into it.
func (r *Reconciler) Invalidate() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the current chat list. The slice is a copy; callers
// may not see writes that happen after the call.
func (r *Reconciler) Snapshot() []domain.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

// Chat returns the chat with the given id from the current snapshot.
func (r *Reconciler) Chat(id string) (domain.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.chats {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Chat{}, false
}

// CreateChatInput carries the channel/group wizard fields.
type CreateChatInput struct {
	Name        string
	Type        string
	Description string
	AvatarURL   string
	Link        string
	Privacy     string
}

// CreateLocalChat inserts a synthetic channel or group into the
// session state. The chat exists only for this viewer until someone
// posts into it; projection carries it forward as an orphan.
func (r *Reconciler) CreateLocalChat(in CreateChatInput) domain.Chat {
	chatType := in.Type
	if chatType != domain.ChatGroup {
		chatType = domain.ChatChannel
	}
	created := "Канал создан"
	if chatType == domain.ChatGroup {
		created = "Группа создана"
	}
	link := ""
	if in.Link != "" {
		link = "t.me/" + in.Link
	}
	avatar := in.AvatarURL
	if avatar == "" {
		avatar = defaultAvatarURL(in.Name)
	}
	chat := domain.Chat{
		ID:          domain.SyntheticIDPrefix + timeIDNow(),
		Name:        in.Name,
		AvatarURL:   avatar,
		LastMessage: created,
		Type:        chatType,
		IsAdmin:     true,
		Subscribers: 1,
		Messages:    []domain.Message{},
		Description: in.Description,
		Link:        link,
		Privacy:     in.Privacy,
	}

	r.mu.Lock()
	r.chats = append([]domain.Chat{chat}, r.chats...)
	r.mu.Unlock()
	return chat
}

func (r *Reconciler) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-r.kick:
			r.recompute()
		case <-ticker.C:
			r.recompute()
		}
	}
}

// recompute projects the ledger into a fresh chat list. On any store
// error the previous list is kept.
func (r *Reconciler) recompute() {
	ledger, err := repo.AllMessages(r.st)
	if err != nil {
		log.Error().Err(err).Str("viewer", redactPhone(r.viewer)).Msg("reconciler: read ledger")
		reconcilerRuns.WithLabelValues("error").Inc()
		return
	}
	users, err := repo.ListUsers(r.st)
	if err != nil {
		log.Error().Err(err).Str("viewer", redactPhone(r.viewer)).Msg("reconciler: read directory")
		reconcilerRuns.WithLabelValues("error").Inc()
		return
	}
	byPhone := make(map[string]*domain.User, len(users))
	for i := range users {
		byPhone[users[i].PhoneNumber] = &users[i]
	}
	lookup := func(id string) (*domain.User, bool) {
		u, ok := byPhone[id]
		return u, ok
	}

	r.mu.Lock()
	r.chats = Project(r.viewer, ledger, lookup, r.chats)
	r.mu.Unlock()
	reconcilerRuns.WithLabelValues("success").Inc()
}

// SessionManager lazily creates and owns one reconciler per viewer.
type SessionManager struct {
	st       *store.Store
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*Reconciler
}

// NewSessionManager builds an empty registry over the shared store.
func NewSessionManager(st *store.Store, interval time.Duration) *SessionManager {
	return &SessionManager{
		st:       st,
		interval: interval,
		sessions: make(map[string]*Reconciler),
	}
}

// Session returns the reconciler for viewer, starting one on first
// use.
func (m *SessionManager) Session(viewer string) *Reconciler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.sessions[viewer]; ok {
		return r
	}
	r := NewReconciler(viewer, m.st, m.interval)
	r.Start()
	m.sessions[viewer] = r
	return r
}

// Invalidate kicks the viewer's reconciler if one is active. Viewers
// without a session pick the write up when they next connect.
func (m *SessionManager) Invalidate(viewer string) {
	m.mu.Lock()
	r, ok := m.sessions[viewer]
	m.mu.Unlock()
	if ok {
		r.Invalidate()
	}
}

// StopAll terminates every active reconciler. Used on shutdown.
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Reconciler, 0, len(m.sessions))
	for _, r := range m.sessions {
		sessions = append(sessions, r)
	}
	m.sessions = make(map[string]*Reconciler)
	m.mu.Unlock()
	for _, r := range sessions {
		r.Stop()
	}
}
