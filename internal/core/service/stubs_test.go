package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chatty/chat-server/internal/core/domain"
	"github.com/chatty/chat-server/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	findErr   error // if set, FindByID and FindByEmail return this error
	createErr error
	updateErr error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		r.byID[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Email == user.Email || u.UserName == user.UserName {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	clone := cloneUser(user)
	clone.ID = fmt.Sprintf("user-%d", r.nextID)
	r.byID[clone.ID] = clone
	return cloneUser(clone), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ListExcept(_ context.Context, id string) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		if u.ID != id {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) SetOTP(_ context.Context, id, otpHash string, expiresAt time.Time) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.OTPHash = otpHash
	u.OTPExpiresAt = expiresAt
	return nil
}

func (r *stubUserRepo) MarkVerified(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Verified = true
	u.OTPHash = ""
	u.OTPExpiresAt = time.Time{}
	return nil
}

func (r *stubUserRepo) UpdateProfilePic(_ context.Context, id, url string) (*domain.User, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.ProfilePic = url
	return cloneUser(u), nil
}

type stubMessageRepo struct {
	byID      map[string]*domain.Message
	order     []string // insertion order
	nextID    int
	createErr error
	deleteErr error
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{byID: make(map[string]*domain.Message)}
}

func (r *stubMessageRepo) Create(_ context.Context, m *domain.Message) (*domain.Message, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	clone := *m
	clone.ID = fmt.Sprintf("msg-%d", r.nextID)
	r.byID[clone.ID] = &clone
	r.order = append(r.order, clone.ID)
	out := clone
	return &out, nil
}

func (r *stubMessageRepo) FindByID(_ context.Context, id string) (*domain.Message, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *stubMessageRepo) FindBetween(_ context.Context, a, b string) ([]*domain.Message, error) {
	out := []*domain.Message{}
	for _, id := range r.order {
		m, ok := r.byID[id]
		if !ok {
			continue
		}
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubMessageRepo) DeleteBetween(_ context.Context, a, b string) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var n int64
	for id, m := range r.byID {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *stubMessageRepo) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return domain.ErrMessageNotFound
	}
	delete(r.byID, id)
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type stubMedia struct {
	uploadErr error
	deleteErr error
	uploaded  []string // content types
	deleted   []string
	next      int
}

func (m *stubMedia) Upload(_ context.Context, data []byte, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.next++
	m.uploaded = append(m.uploaded, contentType)
	return fmt.Sprintf("https://cdn.example.com/img-%d", m.next), nil
}

func (m *stubMedia) Delete(_ context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return m.deleteErr
}

type emitted struct {
	userID  string
	event   string
	payload any
}

// stubNotifier records emissions for users listed as online and drops the
// rest, like the gateway does.
type stubNotifier struct {
	mu     sync.Mutex
	online map[string]bool
	sent   []emitted
}

func newStubNotifier(online ...string) *stubNotifier {
	n := &stubNotifier{online: make(map[string]bool)}
	for _, id := range online {
		n.online[id] = true
	}
	return n
}

func (n *stubNotifier) EmitToUser(userID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[userID] {
		return
	}
	n.sent = append(n.sent, emitted{userID: userID, event: event, payload: payload})
}

func (n *stubNotifier) to(userID string) []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []emitted
	for _, e := range n.sent {
		if e.userID == userID {
			out = append(out, e)
		}
	}
	return out
}

type stubRelay struct {
	events []ports.DomainEvent
}

func (r *stubRelay) Enqueue(e ports.DomainEvent) {
	r.events = append(r.events, e)
}

type stubMailer struct {
	err  error
	sent map[string]string // email -> last otp
}

func newStubMailer() *stubMailer {
	return &stubMailer{sent: make(map[string]string)}
}

func (m *stubMailer) SendOTP(_ context.Context, email, otp string) error {
	if m.err != nil {
		return m.err
	}
	m.sent[email] = otp
	return nil
}

// stubLimiter allows the first `limit` attempts per key.
type stubLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func newStubLimiter(limit int) *stubLimiter {
	return &stubLimiter{limit: limit, seen: make(map[string]int)}
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.seen[key]++
	if l.seen[key] > l.limit {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

var errBoom = errors.New("boom")
