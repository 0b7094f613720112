/*
cache.go - In-memory record cache with subscriber notification

PURPOSE:
  Holds the last-known-normalized record set for one user and notifies
  registered subscribers after every successful refresh or mutation so
  dependent aggregations recompute. This is the only stateful piece of the
  engine, and the only piece that talks to collaborators (the data store
  and the mileage estimator).

MUTATION PATH (create/update):
  1. Normalize the incoming raw record (assigning an id if absent)
  2. Fill a zero bag fee from the settings default for the loop type
  3. Compute round-trip mileage via the estimator; when the estimator is
     unavailable or has no result, the record's prior mileage values are
     preserved rather than zeroed
  4. Persist through the store (failure surfaces to the caller - a silently
     dropped financial record is unacceptable)
  5. Upsert into the cache, last-write-wins by id
  6. Notify subscribers, in registration order, each isolated from panics

CONSISTENCY:
  A failed refresh leaves the previous contents in place (stale but
  consistent). Overlapping refreshes are not cancelled; the last one to
  complete wins. This is an accepted eventual-consistency trade-off - the
  cache is not linearizable.

CONCURRENCY:
  There is one logical writer (the active session), but reads arrive on
  HTTP handler goroutines, so state is guarded by an RWMutex. Notification
  runs outside the lock: subscribers are expected to re-read the cache.

SEE ALSO:
  - store.go: The data-store collaborator interface
  - normalize.go: Applied to every record crossing the store boundary
*/
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// MILEAGE COLLABORATOR
// =============================================================================

// Place identifies a location for mileage lookups: an opaque provider place
// id when one is known, otherwise a free-text address.
type Place struct {
	PlaceID string
	Address string
}

// IsZero reports whether the place carries no usable identifier.
func (p Place) IsZero() bool { return p.PlaceID == "" && p.Address == "" }

// MileageEstimator is the driving-distance collaborator. The boolean is
// false when the provider has no result for the pair; an error means the
// provider itself was unreachable. Either way the caller keeps prior
// mileage values.
type MileageEstimator interface {
	EstimateRoundTripMiles(ctx context.Context, origin, destination Place) (decimal.Decimal, bool, error)
}

// =============================================================================
// CACHE
// =============================================================================

type subscriber struct {
	id int
	fn func()
}

// Cache is the record cache for one user. Construct one per user session
// (or per test) - there is no package-level shared state.
type Cache struct {
	store   Store
	mileage MileageEstimator
	userID  string
	log     *logrus.Logger

	mu       sync.RWMutex
	loops    []Loop
	expenses []Expense
	settings Settings
	subs     []subscriber
	nextID   int
}

// NewCache creates an empty cache. The estimator may be nil (mileage is
// then never recomputed); a nil logger falls back to the standard one.
func NewCache(store Store, estimator MileageEstimator, userID string, log *logrus.Logger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{
		store:    store,
		mileage:  estimator,
		userID:   userID,
		log:      log,
		settings: NormalizeSettings(nil),
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Loops returns a copy of the cached canonical loops, newest-first by
// mutation order.
func (c *Cache) Loops() []Loop {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Loop, len(c.loops))
	copy(out, c.loops)
	return out
}

// Expenses returns a copy of the cached canonical expenses.
func (c *Cache) Expenses() []Expense {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Expense, len(c.expenses))
	copy(out, c.expenses)
	return out
}

// UserSettings returns the cached settings (defaults until refreshed).
func (c *Cache) UserSettings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscribe registers fn to run after every successful refresh or mutation.
// Notification is synchronous and ordered by registration. The returned
// function unsubscribes.
func (c *Cache) Subscribe(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// notify fans out to subscribers in registration order, outside the lock so
// subscribers can re-read the cache. A panicking subscriber is logged and
// isolated so the remaining subscribers still run.
func (c *Cache) notify() {
	c.mu.RLock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithFields(logrus.Fields{
						"subscriber": s.id,
						"panic":      r,
					}).Error("ledger cache subscriber panicked")
				}
			}()
			s.fn()
		}()
	}
}

// =============================================================================
// REFRESH
// =============================================================================

// Refresh reloads and renormalizes all records from the store. On any store
// failure the cache keeps its previous contents and no notification fires.
func (c *Cache) Refresh(ctx context.Context) error {
	rawLoops, err := c.store.ListLoops(ctx, c.userID)
	if err != nil {
		return &StoreError{Op: "refresh", Entity: "loop", Err: err}
	}
	rawExpenses, err := c.store.ListExpenses(ctx, c.userID)
	if err != nil {
		return &StoreError{Op: "refresh", Entity: "expense", Err: err}
	}
	rawSettings, err := c.store.LoadSettings(ctx, c.userID)
	if err != nil {
		return &StoreError{Op: "refresh", Entity: "settings", Err: err}
	}

	loops := make([]Loop, 0, len(rawLoops))
	for _, r := range rawLoops {
		loops = append(loops, NormalizeLoop(r))
	}
	expenses := make([]Expense, 0, len(rawExpenses))
	for _, r := range rawExpenses {
		expenses = append(expenses, NormalizeExpense(r))
	}

	c.mu.Lock()
	c.loops = loops
	c.expenses = expenses
	c.settings = NormalizeSettings(rawSettings)
	c.mu.Unlock()

	c.notify()
	return nil
}

// =============================================================================
// LOOP MUTATIONS
// =============================================================================

// SaveLoop creates or updates a loop: normalize, compute mileage, persist,
// cache, notify. The returned loop is the canonical form of what the store
// accepted.
func (c *Cache) SaveLoop(ctx context.Context, raw RawRecord) (Loop, error) {
	loop := NormalizeLoop(raw)
	if loop.ID == "" {
		loop.ID = uuid.NewString()
	}
	c.applyDefaultBagFee(&loop)
	c.applyMileage(ctx, &loop)

	saved, err := c.store.UpsertLoop(ctx, c.userID, loop.Raw())
	if err != nil {
		return Loop{}, &StoreError{Op: "save", Entity: "loop", Err: err}
	}
	loop = NormalizeLoop(saved)

	c.mu.Lock()
	c.loops = upsertLoop(c.loops, loop)
	c.mu.Unlock()

	c.notify()
	return loop, nil
}

// DeleteLoop removes a loop from the store and the cache, then notifies.
func (c *Cache) DeleteLoop(ctx context.Context, id string) error {
	if err := c.store.DeleteLoop(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return &StoreError{Op: "delete", Entity: "loop", Err: err}
	}
	c.mu.Lock()
	c.loops = removeLoop(c.loops, id)
	c.mu.Unlock()

	c.notify()
	return nil
}

// applyDefaultBagFee fills a zero bag fee from the settings default for the
// loop's type. Quick entries that skip the fee don't record free loops; an
// explicit fee is never overridden.
func (c *Cache) applyDefaultBagFee(loop *Loop) {
	if !loop.BagFee.IsZero() {
		return
	}
	c.mu.RLock()
	fee := c.settings.DefaultBagFee(loop.LoopType)
	c.mu.RUnlock()
	if fee.IsPositive() {
		loop.BagFee = fee
	}
}

// applyMileage computes round-trip mileage and its cost for a loop. When
// the estimator is missing, errors, or has no result, the loop's existing
// mileage values stay; if those are zero on an update, the prior cached
// version's values carry over.
func (c *Cache) applyMileage(ctx context.Context, loop *Loop) {
	c.mu.RLock()
	settings := c.settings
	prior, hasPrior := findLoop(c.loops, loop.ID)
	c.mu.RUnlock()

	origin := Place{PlaceID: settings.HomePlaceID, Address: settings.HomeAddress}
	destination := Place{PlaceID: loop.PlaceID, Address: loop.Course}

	if c.mileage != nil && !origin.IsZero() && !destination.IsZero() {
		miles, ok, err := c.mileage.EstimateRoundTripMiles(ctx, origin, destination)
		if err == nil && ok && miles.IsPositive() {
			loop.MileageMiles = miles.Round(1)
			loop.MileageCost = miles.Mul(settings.MileageRate).Round(2)
			return
		}
		if err != nil {
			c.log.WithError(err).WithField("loop", loop.ID).Warn("mileage estimate failed, keeping prior values")
		}
	}

	if loop.MileageMiles.IsZero() && loop.MileageCost.IsZero() && hasPrior {
		loop.MileageMiles = prior.MileageMiles
		loop.MileageCost = prior.MileageCost
	}
}

// =============================================================================
// EXPENSE MUTATIONS
// =============================================================================

// SaveExpense creates or updates an expense: normalize, persist, cache,
// notify.
func (c *Cache) SaveExpense(ctx context.Context, raw RawRecord) (Expense, error) {
	expense := NormalizeExpense(raw)
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}

	saved, err := c.store.UpsertExpense(ctx, c.userID, expense.Raw())
	if err != nil {
		return Expense{}, &StoreError{Op: "save", Entity: "expense", Err: err}
	}
	expense = NormalizeExpense(saved)

	c.mu.Lock()
	c.expenses = upsertExpense(c.expenses, expense)
	c.mu.Unlock()

	c.notify()
	return expense, nil
}

// DeleteExpense removes an expense from the store and the cache.
func (c *Cache) DeleteExpense(ctx context.Context, id string) error {
	if err := c.store.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return &StoreError{Op: "delete", Entity: "expense", Err: err}
	}
	c.mu.Lock()
	c.expenses = removeExpense(c.expenses, id)
	c.mu.Unlock()

	c.notify()
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// SaveSettings persists and caches the user's settings record.
func (c *Cache) SaveSettings(ctx context.Context, raw RawRecord) (Settings, error) {
	settings := NormalizeSettings(raw)
	saved, err := c.store.SaveSettings(ctx, c.userID, settings.Raw())
	if err != nil {
		return Settings{}, &StoreError{Op: "save", Entity: "settings", Err: err}
	}
	normalized := NormalizeSettings(saved)

	c.mu.Lock()
	c.settings = normalized
	c.mu.Unlock()

	c.notify()
	return normalized, nil
}

// =============================================================================
// UPSERT HELPERS - Last-write-wins by id
// =============================================================================

// upsertLoop removes any prior entry with the same id and prepends the new
// one. Prepending keeps the cache newest-first with no merge logic.
func upsertLoop(loops []Loop, l Loop) []Loop {
	out := make([]Loop, 0, len(loops)+1)
	out = append(out, l)
	for _, existing := range loops {
		if existing.ID != l.ID {
			out = append(out, existing)
		}
	}
	return out
}

func removeLoop(loops []Loop, id string) []Loop {
	var out []Loop
	for _, l := range loops {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

func findLoop(loops []Loop, id string) (Loop, bool) {
	for _, l := range loops {
		if l.ID == id {
			return l, true
		}
	}
	return Loop{}, false
}

func upsertExpense(expenses []Expense, e Expense) []Expense {
	out := make([]Expense, 0, len(expenses)+1)
	out = append(out, e)
	for _, existing := range expenses {
		if existing.ID != e.ID {
			out = append(out, existing)
		}
	}
	return out
}

func removeExpense(expenses []Expense, id string) []Expense {
	var out []Expense
	for _, e := range expenses {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
