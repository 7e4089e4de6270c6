package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"planhub-be/internal/entity"
	"planhub-be/internal/events"
	"planhub-be/internal/repository/contract"
	"planhub-be/internal/repository/specification"
	"planhub-be/internal/repository/unitofwork"
	"planhub-be/pkg/payment"

	"github.com/google/uuid"
)

// memStore backs every fake repository. Rows are copied on the way in and
// out so a rolled back change never leaks.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*entity.User
	plans     map[uuid.UUID]*entity.Plan
	purchases map[uuid.UUID]*entity.Purchase
	tokens    map[uuid.UUID]*entity.DownloadToken
	refresh   map[string]*entity.UserRefreshToken

	commits int
	// beforeTokenCreate runs ahead of the live-token check in Create.
	beforeTokenCreate func()
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]*entity.User),
		plans:     make(map[uuid.UUID]*entity.Plan),
		purchases: make(map[uuid.UUID]*entity.Purchase),
		tokens:    make(map[uuid.UUID]*entity.DownloadToken),
		refresh:   make(map[string]*entity.UserRefreshToken),
	}
}

func (s *memStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{store: s}
}

func (s *memStore) addUser(role entity.UserRole) *entity.User {
	u := &entity.User{
		Id:       uuid.New(),
		Email:    strings.ToLower(string(role)) + "-" + uuid.NewString()[:8] + "@example.com",
		FullName: "Test " + string(role),
		Role:     role,
		Status:   entity.UserStatusActive,
	}
	s.users[u.Id] = u
	return u
}

func (s *memStore) addPlan(p *entity.Plan) *entity.Plan {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	if p.Status == "" {
		p.Status = entity.PlanStatusAvailable
	}
	s.plans[p.Id] = p
	return p
}

func (s *memStore) addPurchase(p *entity.Purchase) *entity.Purchase {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.purchases[p.Id] = p
	return p
}

func (s *memStore) purchase(id uuid.UUID) *entity.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purchases[id]
}

func (s *memStore) tokensFor(userId uuid.UUID) []*entity.DownloadToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.DownloadToken
	for _, t := range s.tokens {
		if t.UserId == userId {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakeUnitOfWork struct {
	store *memStore
	inTx  bool
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.inTx = true
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	if u.inTx {
		u.store.mu.Lock()
		u.store.commits++
		u.store.mu.Unlock()
	}
	u.inTx = false
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.inTx = false
	return nil
}

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUnitOfWork) PlanRepository() contract.PlanRepository {
	return &fakePlanRepo{store: u.store}
}

func (u *fakeUnitOfWork) PurchaseRepository() contract.PurchaseRepository {
	return &fakePurchaseRepo{store: u.store}
}

func (u *fakeUnitOfWork) DownloadTokenRepository() contract.DownloadTokenRepository {
	return &fakeTokenRepo{store: u.store}
}

func unsupported(spec specification.Specification) error {
	return fmt.Errorf("fake repository: unsupported specification %T", spec)
}

// Users

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return contract.ErrEmailTaken
		}
	}
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.Id]; !ok {
		return errors.New("user not found")
	}
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.User
	for _, u := range r.store.users {
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				ok = ok && u.Id == s.ID
			case specification.ByEmail:
				ok = ok && u.Email == s.Email
			case specification.ByRole:
				ok = ok && string(u.Role) == s.Role
			case specification.OrderBy, specification.Pagination:
			default:
				return nil, unsupported(spec)
			}
		}
		if ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *token
	r.store.refresh[token.TokenHash] = &cp
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var hash string
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByTokenHash:
			hash = s.Hash
		case specification.ForUpdate:
		default:
			return nil, unsupported(spec)
		}
	}
	token, ok := r.store.refresh[hash]
	if !ok {
		return nil, nil
	}
	cp := *token
	return &cp, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if token, ok := r.store.refresh[tokenHash]; ok {
		token.Revoked = true
	}
	return nil
}

func (r *fakeUserRepo) RevokeUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, token := range r.store.refresh {
		if token.UserId == userID && !token.Revoked {
			token.Revoked = true
			n++
		}
	}
	return n, nil
}

// Plans

type fakePlanRepo struct{ store *memStore }

func (r *fakePlanRepo) Create(ctx context.Context, plan *entity.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *plan
	r.store.plans[plan.Id] = &cp
	return nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *entity.Plan) error {
	return r.Create(ctx, plan)
}

func (r *fakePlanRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakePlanRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Plan
	for _, p := range r.store.plans {
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				ok = ok && p.Id == s.ID
			case specification.ByIDs:
				found := false
				for _, id := range s.IDs {
					found = found || id == p.Id
				}
				ok = ok && found
			case specification.ByDesignerID:
				ok = ok && p.DesignerId == s.DesignerID
			case specification.ByPlanStatus:
				ok = ok && string(p.Status) == s.Status
			case specification.ByCategory:
				ok = ok && strings.EqualFold(p.Category, s.Category)
			case specification.PlanSearchQuery:
				q := strings.ToLower(s.Query)
				ok = ok && (strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q))
			case specification.WithFiles, specification.OrderBy, specification.Pagination:
			default:
				return nil, unsupported(spec)
			}
		}
		if ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakePlanRepo) CreateFile(ctx context.Context, file *entity.PlanFile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	plan, ok := r.store.plans[file.PlanId]
	if !ok {
		return fmt.Errorf("plan %s not found", file.PlanId)
	}
	cp := *file
	plan.Files = append(plan.Files, &cp)
	return nil
}

func (r *fakePlanRepo) IncrementSalesCount(ctx context.Context, planID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if plan, ok := r.store.plans[planID]; ok {
		plan.SalesCount++
	}
	return nil
}

// Purchases

type fakePurchaseRepo struct{ store *memStore }

func (r *fakePurchaseRepo) Create(ctx context.Context, purchase *entity.Purchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *purchase
	r.store.purchases[purchase.Id] = &cp
	return nil
}

func (r *fakePurchaseRepo) RetryPending(ctx context.Context, purchase *entity.Purchase) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.purchases[purchase.Id]
	if !ok || stored.PaymentStatus != entity.PaymentStatusPending {
		return false, nil
	}
	cp := *stored
	cp.TransactionId = purchase.TransactionId
	cp.Amount = purchase.Amount
	cp.PaymentMethod = purchase.PaymentMethod
	cp.Metadata = purchase.Metadata
	cp.Metadata.References = append([]string(nil), purchase.Metadata.References...)
	cp.UpdatedAt = purchase.UpdatedAt
	r.store.purchases[purchase.Id] = &cp
	return true, nil
}

func (r *fakePurchaseRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Purchase, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakePurchaseRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Purchase, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Purchase
	var order *specification.OrderBy
	for _, p := range r.store.purchases {
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				ok = ok && p.Id == s.ID
			case specification.ByReference:
				ok = ok && p.MatchesReference(s.Reference)
			case specification.UserOwnedBy:
				ok = ok && p.UserId == s.UserID
			case specification.ByPlanID:
				ok = ok && p.PlanId == s.PlanID
			case specification.ByPaymentStatus:
				ok = ok && string(p.PaymentStatus) == s.Status
			case specification.OrderBy:
				o := s
				order = &o
			case specification.ForUpdate, specification.Pagination:
			default:
				return nil, unsupported(spec)
			}
		}
		if ok {
			cp := *p
			cp.Metadata.References = append([]string(nil), p.Metadata.References...)
			out = append(out, &cp)
		}
	}
	if order != nil && order.Desc {
		sort.Slice(out, func(i, j int) bool {
			if order.Field == "completed_at" && out[i].CompletedAt != nil && out[j].CompletedAt != nil {
				return out[i].CompletedAt.After(*out[j].CompletedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (r *fakePurchaseRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakePurchaseRepo) MarkCompleted(ctx context.Context, purchase *entity.Purchase) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.purchases[purchase.Id]
	if !ok || stored.IsCompleted() {
		return false, nil
	}
	cp := *purchase
	cp.PaymentStatus = entity.PaymentStatusCompleted
	r.store.purchases[purchase.Id] = &cp
	return true, nil
}

// Download tokens

type fakeTokenRepo struct{ store *memStore }

func (r *fakeTokenRepo) Create(ctx context.Context, token *entity.DownloadToken) error {
	if r.store.beforeTokenCreate != nil {
		r.store.beforeTokenCreate()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if token.PurchaseId != nil && !token.IsUsed {
		for _, t := range r.store.tokens {
			if !t.IsUsed && t.PurchaseId != nil && *t.PurchaseId == *token.PurchaseId {
				return contract.ErrLiveTokenExists
			}
		}
	}
	cp := *token
	r.store.tokens[token.Id] = &cp
	return nil
}

func (r *fakeTokenRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DownloadToken, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeTokenRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DownloadToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.DownloadToken
	for _, t := range r.store.tokens {
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				ok = ok && t.Id == s.ID
			case specification.ByToken:
				ok = ok && t.Token == s.Token
			default:
				return nil, unsupported(spec)
			}
		}
		if ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) HasConsumed(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tokens {
		if t.PurchaseId != nil && *t.PurchaseId == purchaseID && t.DownloadCount >= 1 {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTokenRepo) InvalidateUnused(ctx context.Context, purchaseID *uuid.UUID, userID, planID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, t := range r.store.tokens {
		if t.IsUsed {
			continue
		}
		if purchaseID != nil {
			if t.PurchaseId == nil || *t.PurchaseId != *purchaseID {
				continue
			}
		} else if t.PurchaseId != nil || t.UserId != userID || t.PlanId != planID {
			continue
		}
		t.IsUsed = true
		n++
	}
	return n, nil
}

func (r *fakeTokenRepo) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tokens[id]
	if !ok || t.IsUsed || t.DownloadCount >= t.MaxDownloads {
		return false, nil
	}
	t.DownloadCount++
	t.IsUsed = t.DownloadCount >= t.MaxDownloads
	t.UsedAt = &at
	return true, nil
}

// Events

type recordingPublisher struct {
	mu        sync.Mutex
	completed []events.PurchaseCompleted
	initiated int
	issued    int
	redeemed  int
	published int
}

var _ events.Publisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishUserRegistered(ctx context.Context, userId uuid.UUID, email, fullName, role string) {
}

func (p *recordingPublisher) PublishPlanPublished(ctx context.Context, planId, designerId uuid.UUID, planName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published++
}

func (p *recordingPublisher) PublishPurchaseInitiated(ctx context.Context, purchaseId, userId, planId uuid.UUID, reference string, amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initiated++
}

func (p *recordingPublisher) PublishPurchaseCompleted(ctx context.Context, evt events.PurchaseCompleted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, evt)
}

func (p *recordingPublisher) PublishDownloadIssued(ctx context.Context, userId, planId uuid.UUID, purchaseId *uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
}

func (p *recordingPublisher) PublishDownloadRedeemed(ctx context.Context, userId, planId uuid.UUID, files int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redeemed++
}

// Payment gateway

type fakeGateway struct {
	name     string
	currency string
	initErr  error
	initReqs []payment.InitRequest
	verified map[string]*payment.Transaction
	webhook  *payment.WebhookEvent
	parseErr error
	// onInit runs inside Initialize, standing in for work that lands while
	// the provider call is in flight.
	onInit func(req payment.InitRequest)
}

func newFakeGateway(name string) *fakeGateway {
	currency := "NGN"
	if name == payment.ProviderMidtrans {
		currency = "IDR"
	}
	return &fakeGateway{name: name, currency: currency, verified: make(map[string]*payment.Transaction)}
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Currency() string { return g.currency }

func (g *fakeGateway) Initialize(ctx context.Context, req payment.InitRequest) (*payment.InitResult, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initReqs = append(g.initReqs, req)
	if g.onInit != nil {
		g.onInit(req)
	}
	return &payment.InitResult{
		Reference:        req.Reference,
		AuthorizationURL: "https://pay.example.com/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*payment.Transaction, error) {
	txn, ok := g.verified[reference]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", reference)
	}
	return txn, nil
}

func (g *fakeGateway) ParseWebhook(body []byte, header payment.HeaderGetter) (*payment.WebhookEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.webhook, nil
}

// Storage

type mapFetcher map[string]string

func (m mapFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	body, ok := m[location]
	if !ok {
		return nil, fmt.Errorf("%s: not found", location)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// Mail queue

type recordingMailQueue struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (q *recordingMailQueue) Publish(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

func paidTransaction(reference string, amountMinor int64, currency string, meta payment.Metadata) *payment.Transaction {
	paidAt := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	return &payment.Transaction{
		Reference:   reference,
		Status:      payment.StatusSuccess,
		RawStatus:   "success",
		PaidAt:      &paidAt,
		AmountMinor: amountMinor,
		Currency:    currency,
		Metadata:    meta,
	}
}
