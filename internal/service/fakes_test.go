package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nexus226/backend/internal/models"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/repository"
)

// noTx выполняет функцию без транзакции.
type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newLimiter(t *testing.T, limit int64, period time.Duration) *ratelimit.Limiter {
	t.Helper()
	store, err := ratelimit.NewStore(nil, "test")
	require.NoError(t, err)
	return ratelimit.New(store, limit, period)
}

func adminFor(id uuid.UUID) AuthorizedAdmin {
	return AuthorizedAdmin{userID: id}
}

type fakeServices struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Service
}

func newFakeServices() *fakeServices {
	return &fakeServices{items: make(map[uuid.UUID]*models.Service)}
}

func (f *fakeServices) Create(_ context.Context, svc *models.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc.ID = uuid.New()
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt
	copied := *svc
	f.items[svc.ID] = &copied
	return nil
}

func (f *fakeServices) GetByID(_ context.Context, id uuid.UUID) (*models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.items[id]
	if !ok {
		return nil, repository.ErrServiceNotFound
	}
	copied := *svc
	return &copied, nil
}

func (f *fakeServices) ListActive(_ context.Context, categoryID *uuid.UUID, _, _ int) ([]models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Service, 0)
	for _, svc := range f.items {
		if svc.Status != models.ServiceStatusActive {
			continue
		}
		if categoryID != nil && (svc.CategoryID == nil || *svc.CategoryID != *categoryID) {
			continue
		}
		out = append(out, *svc)
	}
	return out, nil
}

func (f *fakeServices) Search(_ context.Context, query string, limit int) ([]models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Service, 0)
	for _, svc := range f.items {
		if svc.Status == models.ServiceStatusActive && bytes.Contains(bytes.ToLower([]byte(svc.Title)), bytes.ToLower([]byte(query))) {
			out = append(out, *svc)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeServices) Update(_ context.Context, svc *models.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[svc.ID]; !ok {
		return repository.ErrServiceNotFound
	}
	svc.UpdatedAt = time.Now()
	copied := *svc
	f.items[svc.ID] = &copied
	return nil
}

func (f *fakeServices) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrServiceNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeProposals struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.ServiceProposal
}

func newFakeProposals() *fakeProposals {
	return &fakeProposals{items: make(map[uuid.UUID]*models.ServiceProposal)}
}

func (f *fakeProposals) Create(_ context.Context, p *models.ServiceProposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	f.items[p.ID] = &copied
	return nil
}

func (f *fakeProposals) GetByID(_ context.Context, id uuid.UUID) (*models.ServiceProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrProposalNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProposals) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.ServiceProposal, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeProposals) List(_ context.Context, status string, _, _ int) ([]models.ServiceProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ServiceProposal, 0)
	for _, p := range f.items {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProposals) ListByUser(_ context.Context, userID uuid.UUID) ([]models.ServiceProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ServiceProposal, 0)
	for _, p := range f.items {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProposals) UpdateMessage(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return repository.ErrProposalNotFound
	}
	p.Message = message
	return nil
}

func (f *fakeProposals) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return repository.ErrProposalNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeProposals) AcceptForService(_ context.Context, serviceID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ServiceID != nil && *p.ServiceID == serviceID && p.Status == models.ProposalStatusPending {
			p.Status = models.ProposalStatusAccepted
		}
	}
	return nil
}

func (f *fakeProposals) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrProposalNotFound
	}
	delete(f.items, id)
	return nil
}

// dropForService повторяет ON DELETE CASCADE.
func (f *fakeProposals) dropForService(serviceID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.items {
		if p.ServiceID != nil && *p.ServiceID == serviceID {
			delete(f.items, id)
		}
	}
}

// cascadingServices удаляет заявки вместе с сервисом.
type cascadingServices struct {
	*fakeServices
	proposals *fakeProposals
}

func (c cascadingServices) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.fakeServices.Delete(ctx, id); err != nil {
		return err
	}
	c.proposals.dropForService(id)
	return nil
}

type fakeCategories struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Category
	order []uuid.UUID
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{items: make(map[uuid.UUID]*models.Category)}
}

func (f *fakeCategories) add(name string, parent *uuid.UUID) models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := models.Category{ID: uuid.New(), Name: name, ParentID: parent, ShowInNav: true, CreatedAt: time.Now()}
	f.items[c.ID] = &c
	f.order = append(f.order, c.ID)
	return c
}

func (f *fakeCategories) ListCategories(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Category, 0, len(f.order))
	for _, id := range f.order {
		if c, ok := f.items[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategories) GetCategoryByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategories) GetBySourceProposal(_ context.Context, proposalID uuid.UUID) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.SourceProposalID != nil && *c.SourceProposalID == proposalID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

// CreateCategory атомарен, как вставка с ON CONFLICT (source_proposal_id).
func (f *fakeCategories) CreateCategory(_ context.Context, category *models.Category) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if category.SourceProposalID != nil {
		for _, c := range f.items {
			if c.SourceProposalID != nil && *c.SourceProposalID == *category.SourceProposalID {
				*category = *c
				return false, nil
			}
		}
	}
	category.ID = uuid.New()
	category.CreatedAt = time.Now()
	copied := *category
	f.items[category.ID] = &copied
	f.order = append(f.order, category.ID)
	return true, nil
}

func (f *fakeCategories) UpdateCategory(_ context.Context, category *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	copied := *category
	f.items[category.ID] = &copied
	return nil
}

func (f *fakeCategories) DeleteCategory(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCategories) CountChildren(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.items {
		if c.ParentID != nil && *c.ParentID == id {
			count++
		}
	}
	return count, nil
}

func (f *fakeCategories) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []models.AdminLog
}

func (f *fakeLogs) Append(_ context.Context, entry *models.AdminLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogs) List(_ context.Context, limit, offset int) ([]models.AdminLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AdminLog, 0)
	for i := len(f.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeLogs) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeProfiles struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.UserProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{items: make(map[uuid.UUID]*models.UserProfile)}
}

func (f *fakeProfiles) add(username, role string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.items[id] = &models.UserProfile{ID: id, Username: username, Role: role}
	return id
}

func (f *fakeProfiles) GetProfile(_ context.Context, id uuid.UUID) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfiles) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := f.GetProfile(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (f *fakeProfiles) SetRole(_ context.Context, id uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	p.Role = role
	return nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[profile.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, p := range f.items {
		if id != profile.ID && p.Username == profile.Username {
			return repository.ErrUsernameTaken
		}
	}
	copied := *profile
	f.items[profile.ID] = &copied
	return nil
}

type grantKey struct {
	user  uuid.UUID
	badge uuid.UUID
}

type fakeBadges struct {
	mu      sync.Mutex
	catalog map[uuid.UUID]models.Badge
	grants  map[grantKey]models.UserBadge
	synced  []models.Badge
}

func newFakeBadges() *fakeBadges {
	return &fakeBadges{
		catalog: make(map[uuid.UUID]models.Badge),
		grants:  make(map[grantKey]models.UserBadge),
	}
}

func (f *fakeBadges) add(slug string, tier int) models.Badge {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := models.Badge{ID: uuid.New(), Slug: slug, Name: slug, Tier: tier}
	f.catalog[b.ID] = b
	return b
}

func (f *fakeBadges) List(_ context.Context) ([]models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Badge, 0, len(f.catalog))
	for _, b := range f.catalog {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBadges) GetByID(_ context.Context, id uuid.UUID) (*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.catalog[id]
	if !ok {
		return nil, repository.ErrBadgeNotFound
	}
	return &b, nil
}

func (f *fakeBadges) UpsertCatalog(_ context.Context, badges []models.Badge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, badges...)
	return nil
}

func (f *fakeBadges) Grant(_ context.Context, grant *models.UserBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := grantKey{grant.UserID, grant.BadgeID}
	if _, ok := f.grants[key]; ok {
		return repository.ErrBadgeAlreadyGranted
	}
	grant.GrantedAt = time.Now()
	f.grants[key] = *grant
	return nil
}

func (f *fakeBadges) Revoke(_ context.Context, userID, badgeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := grantKey{userID, badgeID}
	if _, ok := f.grants[key]; !ok {
		return repository.ErrUserBadgeNotFound
	}
	delete(f.grants, key)
	return nil
}

func (f *fakeBadges) ListForUser(_ context.Context, userID uuid.UUID) ([]models.UserBadgeView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.UserBadgeView, 0)
	for key, g := range f.grants {
		if key.user == userID {
			out = append(out, models.UserBadgeView{Badge: f.catalog[key.badge], GrantedAt: g.GrantedAt})
		}
	}
	return out, nil
}

type fakeChat struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*models.ChatMessage
	createErr error
}

func newFakeChat() *fakeChat {
	return &fakeChat{items: make(map[uuid.UUID]*models.ChatMessage)}
}

func (f *fakeChat) Create(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	copied := *msg
	f.items[msg.ID] = &copied
	return nil
}

func (f *fakeChat) GetByID(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.items[id]
	if !ok {
		return nil, repository.ErrChatMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

func (f *fakeChat) ListRecent(_ context.Context, categoryID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatMessage, 0)
	for _, msg := range f.items {
		if msg.CategoryID == categoryID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeChat) UpdateText(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[msg.ID]
	if !ok {
		return repository.ErrChatMessageNotFound
	}
	now := time.Now()
	stored.Message = msg.Message
	stored.EditedAt = &now
	msg.EditedAt = &now
	return nil
}

func (f *fakeChat) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrChatMessageNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeChat) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

var errUploadFailed = errors.New("upload failed")

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "/media/" + key
	f.objects[url] = data
	return url, nil
}

func (f *fakeStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, url)
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
