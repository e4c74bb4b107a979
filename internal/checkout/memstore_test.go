package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-folio/internal/repo"
)

type memState struct {
	reservations map[pgtype.UUID]repo.Reservation
	foodItems    map[pgtype.UUID][]repo.FoodOrderItem
	services     map[pgtype.UUID][]repo.ServiceCharge
	payments     []repo.Payment
	vouchers     map[string]repo.Voucher
	redemptions  []repo.InsertVoucherRedemptionParams
	taxRules     []repo.TaxRule
	overrides    []repo.InsertCheckoutOverrideParams
	snapshots    []repo.InsertFolioSnapshotParams
	sales        []repo.InsertWalkInSaleParams
}

func (s *memState) clone() *memState {
	c := &memState{
		reservations: make(map[pgtype.UUID]repo.Reservation, len(s.reservations)),
		foodItems:    s.foodItems,
		services:     s.services,
		payments:     append([]repo.Payment(nil), s.payments...),
		vouchers:     make(map[string]repo.Voucher, len(s.vouchers)),
		redemptions:  append([]repo.InsertVoucherRedemptionParams(nil), s.redemptions...),
		taxRules:     s.taxRules,
		overrides:    append([]repo.InsertCheckoutOverrideParams(nil), s.overrides...),
		snapshots:    append([]repo.InsertFolioSnapshotParams(nil), s.snapshots...),
		sales:        append([]repo.InsertWalkInSaleParams(nil), s.sales...),
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.vouchers {
		c.vouchers[k] = v
	}
	return c
}

// memStore is an in-memory Store. Transactions work on a copy that replaces
// the committed state only when the callback succeeds.
type memStore struct {
	mu    sync.Mutex
	state *memState
	// failOn makes the named statement fail inside transactions.
	failOn string
	// onTx mutates the working copy when a transaction opens, standing in for
	// a writer that committed between the caller's read and its transaction.
	onTx func(*memState)
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		reservations: map[pgtype.UUID]repo.Reservation{},
		foodItems:    map[pgtype.UUID][]repo.FoodOrderItem{},
		services:     map[pgtype.UUID][]repo.ServiceCharge{},
		vouchers:     map[string]repo.Voucher{},
	}}
}

func (m *memStore) q() *memQueries {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memQueries{state: m.state, store: m}
}

func (m *memStore) InTx(ctx context.Context, fn func(repo.Querier) error) error {
	m.mu.Lock()
	work := m.state.clone()
	m.mu.Unlock()
	if m.onTx != nil {
		m.onTx(work)
	}
	if err := fn(&memQueries{state: work, store: m, tx: true}); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *memStore) GetReservation(ctx context.Context, id pgtype.UUID) (repo.Reservation, error) {
	return m.q().GetReservation(ctx, id)
}
func (m *memStore) GetReservationForUpdate(ctx context.Context, id pgtype.UUID) (repo.Reservation, error) {
	return m.q().GetReservationForUpdate(ctx, id)
}
func (m *memStore) ListFoodOrderItems(ctx context.Context, id pgtype.UUID) ([]repo.FoodOrderItem, error) {
	return m.q().ListFoodOrderItems(ctx, id)
}
func (m *memStore) ListServiceCharges(ctx context.Context, id pgtype.UUID) ([]repo.ServiceCharge, error) {
	return m.q().ListServiceCharges(ctx, id)
}
func (m *memStore) SumReservationPayments(ctx context.Context, id pgtype.UUID) (decimal.Decimal, error) {
	return m.q().SumReservationPayments(ctx, id)
}
func (m *memStore) InsertPayment(ctx context.Context, arg repo.InsertPaymentParams) (repo.Payment, error) {
	return m.q().InsertPayment(ctx, arg)
}
func (m *memStore) GetVoucherByCode(ctx context.Context, code string) (repo.Voucher, error) {
	return m.q().GetVoucherByCode(ctx, code)
}
func (m *memStore) GetVoucherByCodeForUpdate(ctx context.Context, code string) (repo.Voucher, error) {
	return m.q().GetVoucherByCodeForUpdate(ctx, code)
}
func (m *memStore) GetVoucherRedemption(ctx context.Context, arg repo.GetVoucherRedemptionParams) (repo.VoucherRedemption, error) {
	return m.q().GetVoucherRedemption(ctx, arg)
}
func (m *memStore) InsertVoucherRedemption(ctx context.Context, arg repo.InsertVoucherRedemptionParams) error {
	return m.q().InsertVoucherRedemption(ctx, arg)
}
func (m *memStore) IncreaseVoucherUsedCount(ctx context.Context, id pgtype.UUID) (int64, error) {
	return m.q().IncreaseVoucherUsedCount(ctx, id)
}
func (m *memStore) ListActiveTaxRules(ctx context.Context) ([]repo.TaxRule, error) {
	return m.q().ListActiveTaxRules(ctx)
}
func (m *memStore) InsertCheckoutOverride(ctx context.Context, arg repo.InsertCheckoutOverrideParams) error {
	return m.q().InsertCheckoutOverride(ctx, arg)
}
func (m *memStore) InsertFolioSnapshot(ctx context.Context, arg repo.InsertFolioSnapshotParams) error {
	return m.q().InsertFolioSnapshot(ctx, arg)
}
func (m *memStore) MarkCheckedOut(ctx context.Context, arg repo.MarkCheckedOutParams) (int64, error) {
	return m.q().MarkCheckedOut(ctx, arg)
}
func (m *memStore) InsertWalkInSale(ctx context.Context, arg repo.InsertWalkInSaleParams) (pgtype.UUID, error) {
	return m.q().InsertWalkInSale(ctx, arg)
}

type memQueries struct {
	state *memState
	store *memStore
	tx    bool
}

var errInjected = errors.New("injected failure")

func (q *memQueries) fail(stmt string) error {
	if q.tx && q.store.failOn == stmt {
		return errInjected
	}
	return nil
}

func (q *memQueries) GetReservation(ctx context.Context, id pgtype.UUID) (repo.Reservation, error) {
	r, ok := q.state.reservations[id]
	if !ok {
		return repo.Reservation{}, pgx.ErrNoRows
	}
	return r, nil
}

func (q *memQueries) GetReservationForUpdate(ctx context.Context, id pgtype.UUID) (repo.Reservation, error) {
	return q.GetReservation(ctx, id)
}

func (q *memQueries) ListFoodOrderItems(ctx context.Context, id pgtype.UUID) ([]repo.FoodOrderItem, error) {
	return q.state.foodItems[id], nil
}

func (q *memQueries) ListServiceCharges(ctx context.Context, id pgtype.UUID) ([]repo.ServiceCharge, error) {
	return q.state.services[id], nil
}

func (q *memQueries) SumReservationPayments(ctx context.Context, id pgtype.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range q.state.payments {
		if p.ReservationID == id {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (q *memQueries) InsertPayment(ctx context.Context, arg repo.InsertPaymentParams) (repo.Payment, error) {
	if err := q.fail("InsertPayment"); err != nil {
		return repo.Payment{}, err
	}
	p := repo.Payment{
		ID:            repo.UUID(uuid.New()),
		ReservationID: arg.ReservationID,
		SaleID:        arg.SaleID,
		Kind:          arg.Kind,
		Amount:        arg.Amount,
		Method:        arg.Method,
		Reference:     arg.Reference,
		CreatedAt:     time.Now(),
	}
	q.state.payments = append(q.state.payments, p)
	return p, nil
}

func (q *memQueries) GetVoucherByCode(ctx context.Context, code string) (repo.Voucher, error) {
	v, ok := q.state.vouchers[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return repo.Voucher{}, pgx.ErrNoRows
	}
	return v, nil
}

func (q *memQueries) GetVoucherByCodeForUpdate(ctx context.Context, code string) (repo.Voucher, error) {
	return q.GetVoucherByCode(ctx, code)
}

func (q *memQueries) GetVoucherRedemption(ctx context.Context, arg repo.GetVoucherRedemptionParams) (repo.VoucherRedemption, error) {
	for _, r := range q.state.redemptions {
		if r.VoucherID == arg.VoucherID && r.SubjectID == arg.SubjectID {
			return repo.VoucherRedemption{VoucherID: r.VoucherID, SubjectID: r.SubjectID}, nil
		}
	}
	return repo.VoucherRedemption{}, pgx.ErrNoRows
}

func (q *memQueries) InsertVoucherRedemption(ctx context.Context, arg repo.InsertVoucherRedemptionParams) error {
	q.state.redemptions = append(q.state.redemptions, arg)
	return nil
}

func (q *memQueries) IncreaseVoucherUsedCount(ctx context.Context, id pgtype.UUID) (int64, error) {
	for code, v := range q.state.vouchers {
		if v.ID != id {
			continue
		}
		if v.MaxUses.Valid && v.UsedCount >= v.MaxUses.Int32 {
			return 0, nil
		}
		v.UsedCount++
		q.state.vouchers[code] = v
		return 1, nil
	}
	return 0, nil
}

func (q *memQueries) ListActiveTaxRules(ctx context.Context) ([]repo.TaxRule, error) {
	return q.state.taxRules, nil
}

func (q *memQueries) InsertCheckoutOverride(ctx context.Context, arg repo.InsertCheckoutOverrideParams) error {
	q.state.overrides = append(q.state.overrides, arg)
	return nil
}

func (q *memQueries) InsertFolioSnapshot(ctx context.Context, arg repo.InsertFolioSnapshotParams) error {
	if err := q.fail("InsertFolioSnapshot"); err != nil {
		return err
	}
	q.state.snapshots = append(q.state.snapshots, arg)
	return nil
}

func (q *memQueries) MarkCheckedOut(ctx context.Context, arg repo.MarkCheckedOutParams) (int64, error) {
	r, ok := q.state.reservations[arg.ID]
	if !ok || r.Version != arg.Version || r.Status != repo.ReservationCheckedIn {
		return 0, nil
	}
	r.Status = repo.ReservationCheckedOut
	r.Version++
	r.CheckedOutAt = pgtype.Timestamptz{Time: arg.CheckedOutAt, Valid: true}
	q.state.reservations[arg.ID] = r
	return 1, nil
}

func (q *memQueries) InsertWalkInSale(ctx context.Context, arg repo.InsertWalkInSaleParams) (pgtype.UUID, error) {
	q.state.sales = append(q.state.sales, arg)
	return repo.UUID(uuid.New()), nil
}

var _ Store = (*memStore)(nil)
