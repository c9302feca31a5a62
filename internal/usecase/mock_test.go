//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/adapter"
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// In-memory database
// =============================

// memDB backs every in-memory repository. Tests inject failures by operation
// name, e.g. db.FailOn["Usage.Replace"] = errors.New("boom").
type memDB struct {
	mu sync.Mutex

	tenants     map[string]model.Tenant
	access      map[string]model.TenantAccess // tenant|user
	users       map[string]model.User
	stores      map[string]model.Store
	assignments map[string]model.StoreAssignment // store|user
	plans       map[string]model.Plan
	features    map[string][]model.PlanFeature
	subs        map[string]model.Subscription
	usage       map[string]map[string]model.SubscriptionUsage // sub -> feature type
	landing     map[string]model.LandingSubscription
	payments    map[string]model.SubscriptionPayment

	FailOn map[string]error
	Calls  map[string]int
}

func newMemDB() *memDB {
	return &memDB{
		tenants:     map[string]model.Tenant{},
		access:      map[string]model.TenantAccess{},
		users:       map[string]model.User{},
		stores:      map[string]model.Store{},
		assignments: map[string]model.StoreAssignment{},
		plans:       map[string]model.Plan{},
		features:    map[string][]model.PlanFeature{},
		subs:        map[string]model.Subscription{},
		usage:       map[string]map[string]model.SubscriptionUsage{},
		landing:     map[string]model.LandingSubscription{},
		payments:    map[string]model.SubscriptionPayment{},
		FailOn:      map[string]error{},
		Calls:       map[string]int{},
	}
}

// hit records a call and returns the injected failure, if any. Caller holds mu.
func (db *memDB) hit(op string) error {
	db.Calls[op]++
	return db.FailOn[op]
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memSnapshot struct {
	tenants     map[string]model.Tenant
	access      map[string]model.TenantAccess
	users       map[string]model.User
	stores      map[string]model.Store
	assignments map[string]model.StoreAssignment
	plans       map[string]model.Plan
	features    map[string][]model.PlanFeature
	subs        map[string]model.Subscription
	usage       map[string]map[string]model.SubscriptionUsage
	landing     map[string]model.LandingSubscription
	payments    map[string]model.SubscriptionPayment
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	usage := make(map[string]map[string]model.SubscriptionUsage, len(db.usage))
	for k, v := range db.usage {
		usage[k] = copyMap(v)
	}
	features := make(map[string][]model.PlanFeature, len(db.features))
	for k, v := range db.features {
		features[k] = append([]model.PlanFeature(nil), v...)
	}
	return memSnapshot{
		tenants:     copyMap(db.tenants),
		access:      copyMap(db.access),
		users:       copyMap(db.users),
		stores:      copyMap(db.stores),
		assignments: copyMap(db.assignments),
		plans:       copyMap(db.plans),
		features:    features,
		subs:        copyMap(db.subs),
		usage:       usage,
		landing:     copyMap(db.landing),
		payments:    copyMap(db.payments),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tenants, db.access, db.users = s.tenants, s.access, s.users
	db.stores, db.assignments = s.stores, s.assignments
	db.plans, db.features = s.plans, s.features
	db.subs, db.usage = s.subs, s.usage
	db.landing, db.payments = s.landing, s.payments
}

func (db *memDB) repos() usecase.Repositories {
	return usecase.Repositories{
		Tenants:       &memTenantRepo{db},
		Access:        &memAccessRepo{db},
		Users:         &memUserRepo{db},
		Stores:        &memStoreRepo{db},
		Assignments:   &memAssignmentRepo{db},
		Plans:         &memPlanRepo{db},
		Subscriptions: &memSubscriptionRepo{db},
		Usage:         &memUsageRepo{db},
		Landing:       &memLandingRepo{db},
		Payments:      &memPaymentRepo{db},
	}
}

// ---- Transaction manager ----

// memTxManager serializes transactions and restores the pre-transaction state
// when fn fails, mirroring a database rollback.
type memTxManager struct {
	db    *memDB
	txMu  sync.Mutex
	Opts  []pgx.TxOptions
	Count int
}

var _ repository.TransactionManager = (*memTxManager)(nil)

func newMemTxManager(db *memDB) *memTxManager { return &memTxManager{db: db} }

func (m *memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.Opts = append(m.Opts, txOpt)
	m.Count++
	snap := m.db.snapshot()
	if err := fn(ctx, repository.NoTX); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// ---- Tenants ----

type memTenantRepo struct{ db *memDB }

func (r *memTenantRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tenant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Tenants.Save"); err != nil {
		return err
	}
	for _, other := range r.db.tenants {
		if other.Email == t.Email && other.ID != t.ID {
			return fmt.Errorf("tenant email %s: %w", t.Email, domain.ErrAlreadyExists)
		}
	}
	r.db.tenants[t.ID] = *t
	return nil
}

func (r *memTenantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *memTenantRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Tenant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, t := range r.db.tenants {
		if t.Email == email {
			cp := t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Tenant access ----

type memAccessRepo struct{ db *memDB }

func (r *memAccessRepo) Upsert(ctx context.Context, tx repository.Tx, a *model.TenantAccess) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Access.Upsert"); err != nil {
		return err
	}
	key := a.TenantID + "|" + a.UserID
	if existing, ok := r.db.access[key]; ok {
		existing.Role = a.Role
		r.db.access[key] = existing
		return nil
	}
	r.db.access[key] = *a
	return nil
}

func (r *memAccessRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]model.TenantAccess, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TenantAccess
	for _, a := range r.db.access {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccessRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	grants, _ := r.ListByUser(ctx, tx, userID)
	return len(grants), nil
}

// ---- Users ----

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Users.Save"); err != nil {
		return err
	}
	for _, other := range r.db.users {
		if other.Email == u.Email && other.ID != u.ID {
			return fmt.Errorf("user email %s: %w", u.Email, domain.ErrAlreadyExists)
		}
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range r.db.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Stores ----

type memStoreRepo struct{ db *memDB }

func (r *memStoreRepo) Save(ctx context.Context, tx repository.Tx, s *model.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Stores.Save"); err != nil {
		return err
	}
	r.db.stores[s.ID] = *s
	return nil
}

func (r *memStoreRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.stores[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memStoreRepo) ListByTenant(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Store, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.Store
	for _, s := range r.db.stores {
		if s.TenantID == tenantID {
			cp := s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- Store assignments ----

type memAssignmentRepo struct{ db *memDB }

func (r *memAssignmentRepo) Upsert(ctx context.Context, tx repository.Tx, a *model.StoreAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Assignments.Upsert"); err != nil {
		return err
	}
	r.db.assignments[a.StoreID+"|"+a.UserID] = *a
	return nil
}

func (r *memAssignmentRepo) Find(ctx context.Context, tx repository.Tx, storeID, userID string) (*model.StoreAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.assignments[storeID+"|"+userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *memAssignmentRepo) FindPrimaryByUser(ctx context.Context, tx repository.Tx, userID string) (*model.StoreAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.assignments {
		if a.UserID == userID && a.IsPrimary {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Plans ----

type memPlanRepo struct{ db *memDB }

func (r *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Plans.Save"); err != nil {
		return err
	}
	r.db.plans[p.ID] = *p
	return nil
}

func (r *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Plans.FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.db.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memPlanRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.plans {
		if p.Slug == slug {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.db.plans))
	for _, p := range r.db.plans {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *memPlanRepo) ListFeatures(ctx context.Context, tx repository.Tx, planID string) ([]model.PlanFeature, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]model.PlanFeature(nil), r.db.features[planID]...), nil
}

func (r *memPlanRepo) SaveFeatures(ctx context.Context, tx repository.Tx, planID string, features []model.PlanFeature) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.features[planID] = append([]model.PlanFeature(nil), features...)
	return nil
}

// ---- Subscriptions ----

type memSubscriptionRepo struct{ db *memDB }

func (r *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Subscriptions.Save"); err != nil {
		return err
	}
	if s.Status == model.SubscriptionStatusActive {
		for _, other := range r.db.subs {
			if other.TenantID == s.TenantID && other.ID != s.ID && other.Status == model.SubscriptionStatusActive {
				return fmt.Errorf("second active subscription for %s: %w", s.TenantID, domain.ErrAlreadyExists)
			}
		}
	}
	r.db.subs[s.ID] = *s
	return nil
}

func (r *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memSubscriptionRepo) FindCurrentByTenant(ctx context.Context, tx repository.Tx, tenantID string) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var best *model.Subscription
	for _, s := range r.db.subs {
		if s.TenantID != tenantID {
			continue
		}
		cp := s
		switch {
		case best == nil:
			best = &cp
		case cp.Status == model.SubscriptionStatusActive && best.Status != model.SubscriptionStatusActive:
			best = &cp
		case cp.Status == best.Status && cp.UpdatedAt.After(best.UpdatedAt):
			best = &cp
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (r *memSubscriptionRepo) CountActiveByTenant(ctx context.Context, tx repository.Tx, tenantID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, s := range r.db.subs {
		if s.TenantID == tenantID && s.Status == model.SubscriptionStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *memSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.db.subs {
		out[s.Status]++
	}
	return out, nil
}

func (r *memSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for id, s := range r.db.subs {
		if s.Status == model.SubscriptionStatusActive && !s.EndsAt.After(now) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
			r.db.subs[id] = s
			n++
		}
	}
	return n, nil
}

// ---- Usage ----

type memUsageRepo struct{ db *memDB }

func (r *memUsageRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionUsage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.SubscriptionUsage
	for _, u := range r.db.usage[subscriptionID] {
		cp := u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeatureType < out[j].FeatureType })
	return out, nil
}

func (r *memUsageRepo) Replace(ctx context.Context, tx repository.Tx, subscriptionID string, usage []*model.SubscriptionUsage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Usage.Replace"); err != nil {
		return err
	}
	rows := make(map[string]model.SubscriptionUsage, len(usage))
	for _, u := range usage {
		rows[u.FeatureType] = *u
	}
	r.db.usage[subscriptionID] = rows
	return nil
}

func (r *memUsageRepo) Increment(ctx context.Context, tx repository.Tx, subscriptionID, featureType string, delta int64) (*model.SubscriptionUsage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.usage[subscriptionID][featureType]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.CurrentUsage += delta
	u.UpdatedAt = time.Now()
	r.db.usage[subscriptionID][featureType] = u
	return &u, nil
}

func (r *memUsageRepo) SetSoftCap(ctx context.Context, tx repository.Tx, subscriptionID, featureType string, triggered bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.usage[subscriptionID][featureType]
	if !ok {
		return domain.ErrNotFound
	}
	u.SoftCapTriggered = triggered
	r.db.usage[subscriptionID][featureType] = u
	return nil
}

// ---- Landing subscriptions ----

type memLandingRepo struct{ db *memDB }

func (r *memLandingRepo) Save(ctx context.Context, tx repository.Tx, l *model.LandingSubscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Landing.Save"); err != nil {
		return err
	}
	r.db.landing[l.ID] = *l
	return nil
}

func (r *memLandingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LandingSubscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Landing.FindByID"); err != nil {
		return nil, err
	}
	l, ok := r.db.landing[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

// ---- Payments ----

type memPaymentRepo struct{ db *memDB }

func (r *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Payments.Save"); err != nil {
		return err
	}
	r.db.payments[p.ID] = *p
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPayment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Payments.FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.db.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.SubscriptionPayment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.GatewayReference == reference {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, transactionID string, paidAt time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusPaid
	p.GatewayTransactionID = &transactionID
	p.PaidAt = &paidAt
	p.UpdatedAt = paidAt
	r.db.payments[id] = p
	return true, nil
}

func (r *memPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	r.db.payments[id] = p
	return nil
}

func (r *memPaymentRepo) LinkSubscription(ctx context.Context, tx repository.Tx, id, subscriptionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Payments.LinkSubscription"); err != nil {
		return err
	}
	p, ok := r.db.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.SubscriptionID = &subscriptionID
	r.db.payments[id] = p
	return nil
}

func (r *memPaymentRepo) RecordProvisioningFailure(ctx context.Context, tx repository.Tx, id, reason string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.hit("Payments.RecordProvisioningFailure"); err != nil {
		return err
	}
	p, ok := r.db.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ProvisioningFailures++
	p.ProvisioningError = &reason
	r.db.payments[id] = p
	return nil
}

func (r *memPaymentRepo) ListPaidUnprovisioned(ctx context.Context, tx repository.Tx, olderThan time.Time, maxFailures, limit int) ([]*model.SubscriptionPayment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*model.SubscriptionPayment
	for _, p := range r.db.payments {
		if p.Status == model.PaymentStatusPaid && p.SubscriptionID == nil && p.PaidAt != nil && p.PaidAt.Before(olderThan) &&
			p.ProvisioningFailures < maxFailures {
			cp := p
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// MockNotifier records welcome messages.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.WelcomeMessage
	Err  error
}

var _ adapter.WelcomeNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) SendWelcome(ctx context.Context, msg adapter.WelcomeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return m.Err
}

// MockCredentials issues predictable passwords.
type MockCredentials struct {
	mu sync.Mutex
	n  int
}

var _ adapter.CredentialIssuer = (*MockCredentials)(nil)

func (m *MockCredentials) TemporaryPassword() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("temp-%d", m.n), nil
}

func (m *MockCredentials) Hash(password string) (string, error) { return "hash:" + password, nil }

// MockQueue records enqueued provisioning jobs.
type MockQueue struct {
	mu   sync.Mutex
	Jobs []adapter.ProvisioningJob
	Err  error
}

var _ adapter.ProvisioningQueue = (*MockQueue)(nil)

func (m *MockQueue) Enqueue(ctx context.Context, job adapter.ProvisioningJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Jobs = append(m.Jobs, job)
	return nil
}
