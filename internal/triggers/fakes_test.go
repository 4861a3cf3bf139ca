package triggers

import (
	"context"
	"errors"
	"sync"

	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
)

var (
	errCounterExhausted = errors.New("counter transaction: retries exhausted")
	errClaimsRejected   = errors.New("claims api rejected the call")
	errBatchFailed      = errors.New("batch commit failed")
)

// fakeStore implements ProfileStore in memory with the same contract as the
// real store: the counter step is serialized, profile writes merge, and
// removal is all-or-nothing.
type fakeStore struct {
	mu           sync.Mutex
	count        int
	profiles     map[string]models.UserProfile
	failRegister bool
	failSave     bool
	failRemove   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]models.UserProfile)}
}

func (f *fakeStore) RegisterSignup(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failRegister {
		return false, errCounterExhausted
	}

	first := f.count == 0
	f.count++
	return first, nil
}

func (f *fakeStore) SaveProfile(_ context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSave {
		return errors.New("profile write failed")
	}

	f.profiles[profile.UID] = *profile
	return nil
}

func (f *fakeStore) RemoveProfile(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failRemove {
		return errBatchFailed
	}

	delete(f.profiles, uid)
	if f.count > 0 {
		f.count--
	}
	return nil
}

func (f *fakeStore) Profiles(_ context.Context) ([]models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profiles := make([]models.UserProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (f *fakeStore) profile(uid string) (models.UserProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[uid]
	return p, ok
}

func (f *fakeStore) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeClaims records SetCustomClaims calls and can fail the first N of them
// or all of them.
type fakeClaims struct {
	mu        sync.Mutex
	claims    map[string]types.Claims
	setCalls  int
	failFirst int
	failAll   bool
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claims: make(map[string]types.Claims)}
}

func (f *fakeClaims) SetCustomClaims(_ context.Context, uid string, claims types.Claims) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setCalls++

	if f.failAll {
		return errClaimsRejected
	}
	if f.failFirst > 0 {
		f.failFirst--
		return errClaimsRejected
	}

	f.claims[uid] = claims
	return nil
}

func (f *fakeClaims) get(uid string) (types.Claims, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[uid]
	return c, ok
}

func (f *fakeClaims) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}
