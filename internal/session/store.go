package session

import (
	"context"
	"sync"

	"github.com/campus-foodmap/foodmap/internal/authapi"
	"github.com/campus-foodmap/foodmap/internal/log"
	"github.com/campus-foodmap/foodmap/internal/telemetry/metrics"
)

// Messages returned when a call fails without a server supplied message.
const (
	MessageLoginFailed    = "로그인 중 오류가 발생했습니다."
	MessageRegisterFailed = "회원가입 중 오류가 발생했습니다."
)

// A Store owns the Session. It is safe for concurrent use.
//
// Every operation takes a sequence number when it starts. A completion is
// applied only if no operation started later has already been applied, so
// the last initiated operation determines the final state and stale
// responses are dropped.
type Store struct {
	gateway Gateway

	initOnce sync.Once

	mu          sync.RWMutex
	session     Session
	seq         uint64
	applied     uint64
	checks      int
	subscribers map[int]func(Session)
	nextSubID   int
}

// New creates a Store in the unknown, loading state.
func New(gateway Gateway) *Store {
	return &Store{
		gateway:     gateway,
		session:     Session{IsLoading: true},
		subscribers: make(map[int]func(Session)),
	}
}

// Snapshot returns a copy of the current Session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.session
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

// IsAdmin reports whether the current user is an admin. It does no I/O.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User.IsAdmin()
}

// Subscribe registers fn to be called with the new Session after every
// transition. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Initialize runs the first session check. Only the first call does any
// work; later calls return immediately.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.Refresh(ctx)
	})
}

// Refresh asks the identity service who is logged in and moves to
// Authenticated or Anonymous. IsLoading is set while the check runs and is
// always cleared afterwards.
func (s *Store) Refresh(ctx context.Context) {
	seq := s.begin(func(sess *Session) {
		sess.IsLoading = true
	}, true)

	res, err := s.gateway.CurrentUser(ctx)

	var user *authapi.User
	switch {
	case err != nil:
		if authapi.IsUnauthorized(err) {
			log.Debug(ctx).Msg("session: not logged in")
		} else {
			log.Warn(ctx).Err(err).Msg("session: failed to check authentication status")
		}
	case res != nil && res.Success && res.User != nil:
		user = res.User
	}

	s.finish(seq, true, func(sess *Session) {
		setUser(sess, user)
	})
}

// Login authenticates with email and password. On failure the Session is
// left unchanged and the returned Result carries a displayable message.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	seq := s.begin(nil, false)
	res, err := s.gateway.Login(ctx, email, password)
	return s.authenticated(ctx, seq, res, err, MessageLoginFailed, "login")
}

// Register creates an account and, on success, logs the new user in.
func (s *Store) Register(ctx context.Context, name, email, password string) Result {
	seq := s.begin(nil, false)
	res, err := s.gateway.Register(ctx, name, email, password)
	return s.authenticated(ctx, seq, res, err, MessageRegisterFailed, "register")
}

// Logout ends the session. The Session becomes Anonymous even when the
// identity service cannot be reached.
func (s *Store) Logout(ctx context.Context) {
	if err := s.gateway.Logout(ctx); err != nil {
		log.Warn(ctx).Err(err).Msg("session: logout request failed")
	}
	s.finishLatest(func(sess *Session) {
		setUser(sess, nil)
	})
}

func (s *Store) authenticated(ctx context.Context, seq uint64, res *authapi.AuthResponse, err error, fallback, op string) Result {
	if err != nil {
		log.Warn(ctx).Err(err).Str("op", op).Msg("session: request failed")
		s.finish(seq, false, nil)
		if msg := authapi.Message(err); msg != "" {
			return Result{Message: msg}
		}
		return Result{Message: fallback}
	}
	if res == nil || !res.Success || res.User == nil {
		s.finish(seq, false, nil)
		if res != nil && res.Message != "" {
			return Result{Message: res.Message}
		}
		return Result{Message: fallback}
	}

	user := res.User
	s.finish(seq, false, func(sess *Session) {
		setUser(sess, user)
	})
	return Result{Success: true}
}

// begin allocates a sequence number and applies update immediately.
func (s *Store) begin(update func(*Session), check bool) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if check {
		s.checks++
	}
	var snap Session
	if update != nil {
		update(&s.session)
		snap = s.session
	}
	subs := s.subscriberList()
	s.mu.Unlock()

	if update != nil {
		notify(subs, snap)
	}
	return seq
}

// finish applies update if seq is newer than the last applied operation.
// A nil update only releases the sequence number.
func (s *Store) finish(seq uint64, check bool, update func(*Session)) {
	s.mu.Lock()
	changed := false
	if check {
		s.checks--
		if s.checks == 0 && s.session.IsLoading {
			s.session.IsLoading = false
			changed = true
		}
	}
	if update != nil && seq > s.applied {
		s.applied = seq
		update(&s.session)
		changed = true
	}
	s.commit(changed)
}

// finishLatest always applies update and marks every operation started so
// far as stale.
func (s *Store) finishLatest(update func(*Session)) {
	s.mu.Lock()
	s.applied = s.seq
	update(&s.session)
	s.commit(true)
}

// commit releases s.mu and publishes the session when changed.
func (s *Store) commit(changed bool) {
	snap := s.session
	subs := s.subscriberList()
	s.mu.Unlock()

	if changed {
		metrics.RecordSessionTransition(snap.State().String())
		notify(subs, snap)
	}
}

func (s *Store) subscriberList() []func(Session) {
	subs := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Session), snap Session) {
	for _, fn := range subs {
		fn(snap)
	}
}

// setUser keeps User and IsAuthenticated in lockstep.
func setUser(sess *Session, user *authapi.User) {
	sess.User = user
	sess.IsAuthenticated = user != nil
}
