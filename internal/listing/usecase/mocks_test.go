package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/stretchr/testify/mock"
)

type MockListingRepository struct{ mock.Mock }

func (m *MockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingRepository) Find(ctx context.Context, q domain.SearchQuery) ([]*domain.Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}

type MockDraftRepository struct{ mock.Mock }

func (m *MockDraftRepository) Get(ctx context.Context, ownerID string) (*domain.Draft, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Draft), args.Error(1)
}
func (m *MockDraftRepository) Save(ctx context.Context, draft *domain.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}
// Update applies fn to the draft configured for the call. A configured error
// is returned without running fn.
func (m *MockDraftRepository) Update(ctx context.Context, ownerID string, fn func(*domain.Draft) error) (*domain.Draft, error) {
	args := m.Called(ctx, ownerID)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	d := args.Get(0).(*domain.Draft)
	if err := fn(d); err != nil {
		return nil, err
	}
	return d, nil
}
func (m *MockDraftRepository) Delete(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

type MockStorage struct{ mock.Mock }

func (m *MockStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}
func (m *MockStorage) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
func (m *MockStorage) PreviewURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockListingCache) DeleteListing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishListingCreated(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingDeleted(ctx context.Context, outcome *domain.DeleteOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishImageOrphaned(ctx context.Context, listingID string, failure domain.ImageFailure) error {
	args := m.Called(ctx, listingID, failure)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendListingCreatedEmail(toEmail, listingName string) error {
	args := m.Called(toEmail, listingName)
	return args.Error(0)
}

// memListingRepo mirrors the Mongo repository's query semantics in memory.
type memListingRepo struct {
	mu     sync.Mutex
	docs   map[string]*domain.Listing
	nextID int
	clock  time.Time
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{docs: map[string]*domain.Listing{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memListingRepo) Create(_ context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	l.ID = fmt.Sprintf("listing-%d", r.nextID)
	l.Created = r.clock
	cp := *l
	r.docs[l.ID] = &cp
	return nil
}

func (r *memListingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrListingNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *memListingRepo) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memListingRepo) Find(_ context.Context, q domain.SearchQuery) ([]*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Listing{}
	for _, l := range r.docs {
		if q.Term != "" && !strings.HasPrefix(l.Name, q.Term) {
			continue
		}
		if q.OwnerID != "" && l.UID != q.OwnerID {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

type memDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*domain.Draft
}

func newMemDraftRepo() *memDraftRepo {
	return &memDraftRepo{drafts: map[string]*domain.Draft{}}
}

func (r *memDraftRepo) Get(_ context.Context, ownerID string) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[ownerID]
	if !ok {
		return domain.NewDraft(ownerID), nil
	}
	cp := *d
	cp.Images = append([]domain.ImageRecord{}, d.Images...)
	return &cp, nil
}

func (r *memDraftRepo) Save(_ context.Context, d *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	cp.Images = append([]domain.ImageRecord{}, d.Images...)
	r.drafts[d.OwnerID] = &cp
	return nil
}

func (r *memDraftRepo) Update(_ context.Context, ownerID string, fn func(*domain.Draft) error) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := domain.NewDraft(ownerID)
	if cur, ok := r.drafts[ownerID]; ok {
		cp := *cur
		cp.Images = append([]domain.ImageRecord{}, cur.Images...)
		d = &cp
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	stored := *d
	stored.Images = append([]domain.ImageRecord{}, d.Images...)
	r.drafts[ownerID] = &stored
	return d, nil
}

func (r *memDraftRepo) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, ownerID)
	return nil
}

// memStorage is a blob store whose Delete can be made to fail per key.
type memStorage struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failKeys map[string]error
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: map[string][]byte{}, failKeys: map[string]error{}}
}

func (s *memStorage) Upload(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memStorage) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (s *memStorage) PreviewURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://cdn.test/" + key + "?signed=1", nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failKeys[key]; ok {
		return err
	}
	delete(s.blobs, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

// slowStorage delays uploads so concurrent submissions overlap.
type slowStorage struct {
	*memStorage
	delay time.Duration
}

func (s *slowStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	time.Sleep(s.delay)
	return s.memStorage.Upload(ctx, key, contentType, data)
}

// failingDraftRepo wraps memDraftRepo and fails the n-th Update call (1-based).
type failingDraftRepo struct {
	*memDraftRepo
	failOn int
	calls  int
	err    error
}

func (r *failingDraftRepo) Update(ctx context.Context, ownerID string, fn func(*domain.Draft) error) (*domain.Draft, error) {
	r.calls++
	if r.calls == r.failOn {
		return nil, r.err
	}
	return r.memDraftRepo.Update(ctx, ownerID, fn)
}
