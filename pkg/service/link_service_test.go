package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"shortlink/pkg/logging"
	"shortlink/pkg/storage"
	"shortlink/pkg/timeutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddressRegExp = regexp.MustCompile(`^[0-9A-Za-z]{6}$`)

// mockLinkStorage is a map-backed stand-in honoring the LinkStorage contract,
// including the liveness checks the real store does against its own clock.
type mockLinkStorage struct {
	byAddress        map[string]*storage.Link
	createCalls      int
	markVisitedCalls int
	failCreates      int // fail this many Creates with ErrAddressTaken first
}

func newMockLinkStorage() *mockLinkStorage {
	return &mockLinkStorage{byAddress: make(map[string]*storage.Link)}
}

func (m *mockLinkStorage) Create(_ context.Context, link *storage.Link) error {
	m.createCalls++
	if m.failCreates > 0 {
		m.failCreates--
		return storage.ErrAddressTaken
	}
	if _, exists := m.byAddress[link.Address]; exists {
		return storage.ErrAddressTaken
	}
	link.Visited = false
	link.CreatedAt = time.Now().UTC()
	copied := *link
	m.byAddress[link.Address] = &copied
	return nil
}

func (m *mockLinkStorage) GetByAddress(_ context.Context, address string) (*storage.Link, error) {
	link, exists := m.byAddress[address]
	if !exists || link.ExpiredAt.Before(time.Now()) {
		return nil, nil
	}
	copied := *link
	return &copied, nil
}

func (m *mockLinkStorage) MarkVisited(_ context.Context, address string) (*storage.Link, error) {
	m.markVisitedCalls++
	link, exists := m.byAddress[address]
	if !exists || link.ExpiredAt.Before(time.Now()) {
		return nil, nil
	}
	link.Visited = true
	copied := *link
	return &copied, nil
}

func (m *mockLinkStorage) GetByID(_ context.Context, id uuid.UUID) (*storage.Link, error) {
	for _, link := range m.byAddress {
		if link.ID == id {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockLinkStorage) DeleteExpired(_ context.Context) (int64, error) {
	var count int64
	for address, link := range m.byAddress {
		if link.ExpiredAt.Before(time.Now()) {
			delete(m.byAddress, address)
			count++
		}
	}
	return count, nil
}

func newTestService(store storage.LinkStorage) *LinkService {
	return NewLinkService(store, nil, logging.NewLogger(logging.LevelError), 7*timeutil.Day)
}

func TestCreateLinkGeneratesAddressAndDefaultExpiry(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	before := time.Now()
	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://github.com/swan-io/chicane",
	})
	require.NoError(t, err)

	assert.Regexp(t, testAddressRegExp, resp.Address)
	assert.Equal(t, "https://github.com/swan-io/chicane", resp.Target)
	assert.False(t, resp.Visited)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Empty(t, resp.ShortURL)

	oneWeekOut := before.Add(7 * timeutil.Day)
	assert.WithinDuration(t, oneWeekOut, resp.ExpiredAt, time.Minute)
}

func TestCreateLinkParsesExpireIn(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target:   "https://example.com",
		ExpireIn: "2w",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(14*timeutil.Day), resp.ExpiredAt, time.Minute)
}

func TestCreateLinkFallsBackToDefaultOnMalformedExpireIn(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target:   "https://example.com",
		ExpireIn: "eventually",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*timeutil.Day), resp.ExpiredAt, time.Minute)
}

func TestCreateLinkWithDomainReturnsShortURL(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://example.com",
		Domain: "sho.rt",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://sho.rt/"+resp.Address, resp.ShortURL)
}

func TestCreateLinkWithCustomAddress(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Address: "chicane",
		Target:  "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "chicane", resp.Address)

	// Same address again: single attempt, conflict surfaces to the caller.
	calls := store.createCalls
	_, err = svc.CreateLink(context.Background(), &CreateLinkRequest{
		Address: "chicane",
		Target:  "https://example.com",
	})
	assert.ErrorIs(t, err, storage.ErrAddressTaken)
	assert.Equal(t, calls+1, store.createCalls)
}

func TestCreateLinkRetriesGeneratedAddressOnCollision(t *testing.T) {
	store := newMockLinkStorage()
	store.failCreates = 1
	svc := newTestService(store)

	resp, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://example.com",
	})
	require.NoError(t, err)
	assert.Regexp(t, testAddressRegExp, resp.Address)
	assert.Equal(t, 2, store.createCalls)
}

func TestCreateLinkGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newMockLinkStorage()
	store.failCreates = 2
	svc := newTestService(store)

	_, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://example.com",
	})
	assert.ErrorIs(t, err, ErrAddressExhausted)
	assert.Equal(t, 2, store.createCalls)
}

func TestCreateLinkRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  CreateLinkRequest
		want error
	}{
		{"empty target", CreateLinkRequest{Target: ""}, ErrInvalidTarget},
		{"relative target", CreateLinkRequest{Target: "/just/a/path"}, ErrInvalidTarget},
		{"unsupported scheme", CreateLinkRequest{Target: "ftp://example.com"}, ErrInvalidTarget},
		{"no host", CreateLinkRequest{Target: "https://"}, ErrInvalidTarget},
		{"bad address", CreateLinkRequest{Address: "no spaces!", Target: "https://example.com"}, ErrInvalidAddress},
		{"bad domain", CreateLinkRequest{Domain: "not a host/", Target: "https://example.com"}, ErrInvalidDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockLinkStorage()
			_, err := newTestService(store).CreateLink(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.createCalls)
		})
	}
}

func TestResolveMarksVisited(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	created, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://example.com",
	})
	require.NoError(t, err)
	require.False(t, created.Visited)

	target, err := svc.Resolve(context.Background(), created.Address)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	link, err := svc.GetLink(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.True(t, link.Visited)
}

func TestResolveUnknownAddressIsAMiss(t *testing.T) {
	svc := newTestService(newMockLinkStorage())

	target, err := svc.Resolve(context.Background(), "nothere")
	require.NoError(t, err)
	assert.Empty(t, target)
}

func TestResolveExpiredLinkIsAMiss(t *testing.T) {
	store := newMockLinkStorage()
	svc := newTestService(store)

	created, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target:   "https://example.com",
		ExpireIn: "-1 minute",
	})
	require.NoError(t, err)

	target, err := svc.Resolve(context.Background(), created.Address)
	require.NoError(t, err)
	assert.Empty(t, target)

	// The row still exists until the reaper removes it; inspection by id
	// keeps working.
	link, err := svc.GetLink(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.False(t, link.Visited)
}

func TestGetLinkUnknownID(t *testing.T) {
	svc := newTestService(newMockLinkStorage())

	link, err := svc.GetLink(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, link)
}

type fakeCache struct {
	targets map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{targets: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) GetTarget(_ context.Context, address string) (string, error) {
	return c.targets[address], nil
}

func (c *fakeCache) SetTarget(_ context.Context, address, target string, ttl time.Duration) error {
	c.targets[address] = target
	c.ttls[address] = ttl
	return nil
}

func TestResolveCachesVisitedTargets(t *testing.T) {
	store := newMockLinkStorage()
	cache := newFakeCache()
	svc := NewLinkService(store, cache, logging.NewLogger(logging.LevelError), 7*timeutil.Day)

	created, err := svc.CreateLink(context.Background(), &CreateLinkRequest{
		Target: "https://example.com",
	})
	require.NoError(t, err)

	// First resolve goes through the store and fills the cache.
	target, err := svc.Resolve(context.Background(), created.Address)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	assert.Equal(t, "https://example.com", cache.targets[created.Address])

	// TTL never outlives the link.
	assert.LessOrEqual(t, cache.ttls[created.Address], time.Hour)
	assert.Positive(t, cache.ttls[created.Address])

	// Second resolve is served from the cache; the flag is already set so
	// skipping the store changes nothing observable.
	require.Equal(t, 1, store.markVisitedCalls)
	target, err = svc.Resolve(context.Background(), created.Address)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
	assert.Equal(t, 1, store.markVisitedCalls)
}

func TestResolveStoreErrorPropagates(t *testing.T) {
	svc := newTestService(&failingStorage{err: errors.New("connection refused")})

	_, err := svc.Resolve(context.Background(), "abc123")
	assert.Error(t, err)
}

type failingStorage struct{ err error }

func (f *failingStorage) Create(context.Context, *storage.Link) error { return f.err }
func (f *failingStorage) GetByAddress(context.Context, string) (*storage.Link, error) {
	return nil, f.err
}
func (f *failingStorage) MarkVisited(context.Context, string) (*storage.Link, error) {
	return nil, f.err
}
func (f *failingStorage) GetByID(context.Context, uuid.UUID) (*storage.Link, error) {
	return nil, f.err
}
func (f *failingStorage) DeleteExpired(context.Context) (int64, error) { return 0, f.err }
