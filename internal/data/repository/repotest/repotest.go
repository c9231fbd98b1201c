// Package repotest provides in-memory repositories with the same observable
// semantics as the pgx implementations, for use in tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"

	"github.com/google/uuid"
)

// Fixture bundles the fakes behind a repository.Repository.
type Fixture struct {
	Repo          *repository.Repository
	OTP           *OTPStore
	Users         *UserStore
	Sessions      *SessionStore
	Accounts      *AccountStore
	Registrations *RegistrationStore
}

func New() *Fixture {
	f := &Fixture{
		OTP:           &OTPStore{},
		Users:         &UserStore{byEmail: map[string]*entity.User{}},
		Sessions:      &SessionStore{byToken: map[uuid.UUID]*entity.Session{}},
		Accounts:      &AccountStore{},
		Registrations: &RegistrationStore{},
	}
	f.Repo = &repository.Repository{
		Tx:           Transactor{},
		User:         f.Users,
		Session:      f.Sessions,
		Account:      f.Accounts,
		OTP:          f.OTP,
		Registration: f.Registrations,
	}
	return f
}

// Transactor runs fn inline. Writes made by the OTP and user fakes through
// the ctx it passes are journaled and undone when fn fails, the way a
// rolled-back transaction would discard them. Nested calls join the outer
// journal.
type Transactor struct{}

type journalKey struct{}

type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) add(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// record registers fn to run if the transaction bound to ctx rolls back.
// Outside a transaction writes are final.
func record(ctx context.Context, fn func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.add(fn)
	}
}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	j := &journal{}
	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
		if err != nil {
			j.rollback()
		}
	}()
	return fn(context.WithValue(ctx, journalKey{}, j))
}

// ==================== OTP ====================

type OTPStore struct {
	mu    sync.Mutex
	codes []*entity.OneTimeCode
	Err   error
}

func (s *OTPStore) Create(ctx context.Context, otp *entity.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c := *otp
	s.codes = append(s.codes, &c)
	record(ctx, func() { s.remove(c.ID) })
	return nil
}

func (s *OTPStore) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.codes {
		if c.ID == id {
			s.codes = append(s.codes[:i], s.codes[i+1:]...)
			return
		}
	}
}

func (s *OTPStore) release(c *entity.OneTimeCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Used = false
}

func (s *OTPStore) Consume(ctx context.Context, email, code string, purpose entity.OTPPurpose, now time.Time) (*entity.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var match *entity.OneTimeCode
	for _, c := range s.codes {
		if c.Email == email && c.Code == code && c.Purpose == purpose && c.Live(now) {
			if match == nil || c.CreatedAt.After(match.CreatedAt) {
				match = c
			}
		}
	}
	if match == nil {
		return nil, nil
	}
	match.Used = true
	record(ctx, func() { s.release(match) })
	out := *match
	return &out, nil
}

func (s *OTPStore) InvalidateActive(ctx context.Context, email string, purpose entity.OTPPurpose, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for _, c := range s.codes {
		if c.Email == email && c.Purpose == purpose && c.Live(now) {
			c.Used = true
			record(ctx, func() { s.release(c) })
			n++
		}
	}
	return n, nil
}

func (s *OTPStore) DeleteStale(_ context.Context, now time.Time, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	cutoff := now.Add(-retention)
	kept := s.codes[:0]
	var n int64
	for _, c := range s.codes {
		if !c.ExpiresAt.After(now) || (c.Used && c.CreatedAt.Before(cutoff)) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.codes = kept
	return n, nil
}

// Add stores a code as-is, for seeding.
func (s *OTPStore) Add(otp entity.OneTimeCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, &otp)
}

// All returns copies of every stored code ordered by creation time.
func (s *OTPStore) All() []entity.OneTimeCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.OneTimeCode, 0, len(s.codes))
	for _, c := range s.codes {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Latest returns the newest code issued for email, or nil.
func (s *OTPStore) Latest(email string) *entity.OneTimeCode {
	all := s.All()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Email == email {
			c := all[i]
			return &c
		}
	}
	return nil
}

// ==================== USERS ====================

type UserStore struct {
	mu        sync.Mutex
	byEmail   map[string]*entity.User
	Err       error
	TouchErr  error
	UpsertErr error
}

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.byEmail {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if u, ok := s.byEmail[email]; ok {
		out := *u
		return &out, nil
	}
	return nil, nil
}

// restoreLater reverts the row for email to its current state when the
// transaction bound to ctx rolls back. Callers hold s.mu.
func (s *UserStore) restoreLater(ctx context.Context, email string) {
	var prev *entity.User
	if u, ok := s.byEmail[email]; ok {
		c := *u
		prev = &c
	}
	record(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if prev == nil {
			delete(s.byEmail, email)
			return
		}
		s.byEmail[email] = prev
	})
}

func (s *UserStore) UpsertVerified(ctx context.Context, user *entity.User) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return nil, s.UpsertErr
	}
	s.restoreLater(ctx, user.Email)
	existing, ok := s.byEmail[user.Email]
	if !ok {
		u := *user
		s.byEmail[user.Email] = &u
		out := u
		return &out, nil
	}
	existing.Name = user.Name
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.EmailVerified = user.EmailVerified
	existing.LastLogin = user.LastLogin
	existing.UpdatedAt = user.UpdatedAt
	out := *existing
	return &out, nil
}

func (s *UserStore) UpsertCredential(ctx context.Context, user *entity.User) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return nil, s.UpsertErr
	}
	s.restoreLater(ctx, user.Email)
	existing, ok := s.byEmail[user.Email]
	if !ok {
		u := *user
		s.byEmail[user.Email] = &u
		out := u
		return &out, nil
	}
	existing.Name = user.Name
	existing.Role = user.Role
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = user.UpdatedAt
	out := *existing
	return &out, nil
}

func (s *UserStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TouchErr != nil {
		return s.TouchErr
	}
	for _, u := range s.byEmail {
		if u.ID == id {
			t := at
			u.LastLogin = &t
			return nil
		}
	}
	return nil
}

// Put stores a user as-is, for seeding.
func (s *UserStore) Put(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[u.Email] = &u
}

func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

// ==================== SESSIONS ====================

type SessionStore struct {
	mu      sync.Mutex
	byToken map[uuid.UUID]*entity.Session
	Err     error
}

func (s *SessionStore) Create(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c := *session
	s.byToken[session.Token] = &c
	return nil
}

func (s *SessionStore) IsRevoked(_ context.Context, token uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	sess, ok := s.byToken[token]
	return ok && sess.Revoked(), nil
}

func (s *SessionStore) Revoke(_ context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	sess, ok := s.byToken[token]
	if !ok || sess.Revoked() {
		return errNotFound("session")
	}
	now := time.Now()
	sess.RevokedAt = &now
	return nil
}

func (s *SessionStore) CleanExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for token, sess := range s.byToken {
		if sess.Purgeable(now, repository.SessionGracePeriod) {
			delete(s.byToken, token)
			n++
		}
	}
	return n, nil
}

func (s *SessionStore) Get(token uuid.UUID) (entity.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byToken[token]
	if !ok {
		return entity.Session{}, false
	}
	return *sess, true
}

func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}

// ==================== ACCOUNTS ====================

type AccountStore struct {
	mu       sync.Mutex
	accounts []entity.Account
	Err      error
}

func (s *AccountStore) Ensure(_ context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, a := range s.accounts {
		if a.Provider == account.Provider && a.ProviderAccountID == account.ProviderAccountID {
			return nil
		}
	}
	s.accounts = append(s.accounts, *account)
	return nil
}

func (s *AccountStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// ==================== REGISTRATIONS ====================

type RegistrationStore struct {
	mu            sync.Mutex
	regs          []entity.Registration
	deletedEvents map[uuid.UUID]bool
	Err           error
}

func (s *RegistrationStore) FindLatestByEmail(_ context.Context, email string) (*entity.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var match *entity.Registration
	for i := range s.regs {
		r := &s.regs[i]
		if !r.Active() || s.deletedEvents[r.EventID] || strings.ToLower(r.Email) != email {
			continue
		}
		if match == nil || r.CreatedAt.After(match.CreatedAt) {
			match = r
		}
	}
	if match == nil {
		return nil, nil
	}
	out := *match
	return &out, nil
}

// Add seeds a registration with generated ids and timestamps.
func (s *RegistrationStore) Add(email, firstName, lastName, eventName string) entity.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	reg := entity.Registration{
		Base:      entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		EventID:   uuid.New(),
		EventName: eventName,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
	s.regs = append(s.regs, reg)
	return reg
}

// Remove soft-deletes every registration for email.
func (s *RegistrationStore) Remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range s.regs {
		if strings.EqualFold(s.regs[i].Email, email) {
			s.regs[i].DeletedAt = &now
		}
	}
}

// RemoveEvent soft-deletes the event behind eventID.
func (s *RegistrationStore) RemoveEvent(eventID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletedEvents == nil {
		s.deletedEvents = map[uuid.UUID]bool{}
	}
	s.deletedEvents[eventID] = true
}

type errNotFound string

func (e errNotFound) Error() string { return string(e) + " not found" }

var (
	_ repository.OTPRepository          = (*OTPStore)(nil)
	_ repository.UserRepository         = (*UserStore)(nil)
	_ repository.SessionRepository      = (*SessionStore)(nil)
	_ repository.AccountRepository      = (*AccountStore)(nil)
	_ repository.RegistrationRepository = (*RegistrationStore)(nil)
)
