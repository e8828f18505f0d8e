package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/chatter/internal/models"
	"github.com/iudanet/chatter/internal/server/storage"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAccounts is an in-memory AccountStore.
type fakeAccounts struct {
	byID map[string]*models.Account
	err  error
	mu   sync.Mutex
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]*models.Account)}
}

func (f *fakeAccounts) CreateAccount(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, a := range f.byID {
		if a.Username == account.Username {
			return storage.ErrAccountExists
		}
	}
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeAccounts) GetAccountByUsername(_ context.Context, username string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

func (f *fakeAccounts) GetAccountByID(_ context.Context, accountID string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[accountID]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byID[accountID]; !ok {
		return storage.ErrAccountNotFound
	}
	delete(f.byID, accountID)
	return nil
}

// fakeSessions is an in-memory storage.SessionStorage.
type fakeSessions struct {
	byHash    map[string]*models.Session
	getErr    error
	deleteErr error
	deletes   int
	mu        sync.Mutex
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: make(map[string]*models.Session)}
}

func (f *fakeSessions) SaveSession(_ context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.byHash[session.TokenHash] = &cp
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, tokenHash string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byHash[tokenHash]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.byHash, tokenHash)
	return nil
}

func (f *fakeSessions) DeleteAccountSessions(_ context.Context, accountID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	n := 0
	for h, s := range f.byHash {
		if s.AccountID == accountID {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for h, s := range f.byHash {
		if s.Expired(now) {
			delete(f.byHash, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byHash)
}

// fakeMembers is an in-memory MembershipStore keyed by channel then account.
type fakeMembers struct {
	roles map[string]map[string]models.Role
	err   error
	reads int
	mu    sync.Mutex
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{roles: make(map[string]map[string]models.Role)}
}

func (f *fakeMembers) set(channelID, accountID string, role models.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roles[channelID] == nil {
		f.roles[channelID] = make(map[string]models.Role)
	}
	f.roles[channelID][accountID] = role
}

func (f *fakeMembers) GetMember(_ context.Context, channelID, accountID string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.roles[channelID][accountID]
	if !ok {
		return nil, storage.ErrMemberNotFound
	}
	return &models.Member{ChannelID: channelID, AccountID: accountID, Role: role}, nil
}

func (f *fakeMembers) CountAdmins(_ context.Context, channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, r := range f.roles[channelID] {
		if r == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}
