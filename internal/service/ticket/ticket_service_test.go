package ticket

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/utils"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
	"github.com/dumeirei/funzone-backend/internal/service/promotion"
	"github.com/dumeirei/funzone-backend/internal/service/reward"
	"github.com/dumeirei/funzone-backend/internal/testutil"
	"github.com/dumeirei/funzone-backend/pkg/vnpay"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePayment(ctx context.Context, req *vnpay.PaymentRequest) (*vnpay.PaymentSession, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*vnpay.PaymentSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) VerifyCallback(params url.Values) (*vnpay.CallbackResult, error) {
	args := m.Called(params)
	if r, ok := args.Get(0).(*vnpay.CallbackResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingNotifier struct {
	mu      sync.Mutex
	tickets []int64
	err     error
}

func (n *recordingNotifier) OnTicketPaid(_ context.Context, ticket *models.Ticket) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tickets = append(n.tickets, ticket.ID)
	return n.err
}

func (n *recordingNotifier) calls() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.tickets...)
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	rewards  *reward.Service
	gateway  *mockGateway
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	rewards := reward.NewService(db, userRepo,
		repository.NewLedgerRepository(db),
		repository.NewChallengeRepository(db),
	)
	resolver := promotion.NewResolver(repository.NewPromotionRepository(db))

	f := &fixture{
		db:       db,
		rewards:  rewards,
		gateway:  &mockGateway{},
		notifier: &recordingNotifier{},
	}
	opts = append([]Option{WithGateway(f.gateway), WithNotifier(f.notifier)}, opts...)
	f.svc = NewService(db,
		repository.NewTicketRepository(db),
		repository.NewCatalogRepository(db),
		userRepo,
		repository.NewPaymentRepository(db),
		resolver,
		rewards,
		opts...,
	)
	return f
}

func (f *fixture) ticketStatus(t *testing.T, id int64) string {
	t.Helper()
	var ticket models.Ticket
	require.NoError(t, f.db.First(&ticket, id).Error)
	return ticket.Status
}

func (f *fixture) score(t *testing.T, userID int64) int64 {
	t.Helper()
	score, err := f.rewards.MyScore(context.Background(), userID)
	require.NoError(t, err)
	return score
}

func assertCode(t *testing.T, want *errors.AppError, err error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, want)
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "an", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 100000)
	closed := &models.Game{Name: "Broken", Price: 10000, Status: models.CatalogStatusClosed}
	require.NoError(t, f.db.Create(closed).Error)

	for _, q := range []int{0, -1, MaxQuantity + 1, 368934881474192} {
		_, err := f.svc.Book(ctx, user.ID, &BookRequest{EventID: &event.ID, Quantity: q})
		assertCode(t, errors.ErrInvalidQuantity, err)
	}
	var n int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err := f.svc.Book(ctx, user.ID, &BookRequest{EventID: &event.ID, Quantity: MaxQuantity})
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, user.ID, &BookRequest{Quantity: 1})
	assertCode(t, errors.ErrInvalidTarget, err)

	_, err = f.svc.Book(ctx, user.ID, &BookRequest{EventID: &event.ID, GameID: &closed.ID, Quantity: 1})
	assertCode(t, errors.ErrInvalidTarget, err)

	missing := int64(999)
	_, err = f.svc.Book(ctx, user.ID, &BookRequest{EventID: &missing, Quantity: 1})
	assertCode(t, errors.ErrEventNotOpen, err)

	_, err = f.svc.Book(ctx, user.ID, &BookRequest{GameID: &closed.ID, Quantity: 1})
	assertCode(t, errors.ErrGameNotOpen, err)

	var count int64
	f.db.Model(&models.Ticket{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestBook_AppliesBestPromotionForTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gold := testutil.CreateUser(t, f.db, "gold", "GOLD")
	plain := testutil.CreateUser(t, f.db, "plain", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 60000)

	testutil.CreatePromotion(t, f.db, "Everyone", 5, "")
	goldOnly := testutil.CreatePromotion(t, f.db, "Gold members", 20, `{"min_tier":"gold"}`)

	info, err := f.svc.Book(ctx, gold.ID, &BookRequest{EventID: &event.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusBooked, info.Status)
	assert.Equal(t, "Gala", info.TargetName)
	assert.Equal(t, int64(120000), info.OriginalTotal)
	assert.Equal(t, int64(24000), info.DiscountAmount)
	assert.Equal(t, int64(96000), info.TotalPrice)
	require.NotNil(t, info.PromotionID)
	assert.Equal(t, goldOnly.ID, *info.PromotionID)

	info, err = f.svc.Book(ctx, plain.ID, &BookRequest{EventID: &event.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(57000), info.TotalPrice)

	_, err = f.svc.Book(ctx, plain.ID, &BookRequest{EventID: &event.ID, Quantity: 1, PromotionID: &goldOnly.ID})
	assertCode(t, errors.ErrPromotionNotApplicable, err)
}

func TestPreview_GameBookingSkipsEventCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "binh", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 60000)
	game := testutil.CreateGame(t, f.db, "Bowling", 20000)
	testutil.CreatePromotion(t, f.db, "Gala only", 50, `{"event_id":`+itoa(event.ID)+`}`)

	preview, err := f.svc.Preview(ctx, user.ID, &BookRequest{GameID: &game.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, DefaultTier, preview.Tier)
	assert.Equal(t, int64(30000), preview.Quote.Final)
	require.NotNil(t, preview.Quote.Promotion)

	other := testutil.CreateEvent(t, f.db, "Concert", 40000)
	preview, err = f.svc.Preview(ctx, user.ID, &BookRequest{EventID: &other.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), preview.Quote.Final)
	assert.Nil(t, preview.Quote.Promotion)
}

func TestStateMachine_CustomerAndReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner", "")
	other := testutil.CreateUser(t, f.db, "other", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 50000)

	info, err := f.svc.Book(ctx, owner.ID, &BookRequest{EventID: &event.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.MarkPending(ctx, other.ID, info.ID)
	assertCode(t, errors.ErrTicketNotOwned, err)

	_, err = f.svc.Reject(ctx, info.ID)
	assertCode(t, errors.ErrTicketStateInvalid, err)

	_, err = f.svc.Approve(ctx, info.ID)
	assertCode(t, errors.ErrTicketStateInvalid, err)

	pending, err := f.svc.MarkPending(ctx, owner.ID, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPending, pending.Status)

	rejected, err := f.svc.Reject(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusBooked, rejected.Status)

	_, err = f.svc.MarkPending(ctx, owner.ID, info.ID)
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, owner.ID, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, owner.ID, info.ID)
	assertCode(t, errors.ErrTicketStateInvalid, err)

	_, err = f.svc.Cancel(ctx, owner.ID, 12345)
	assertCode(t, errors.ErrTicketNotFound, err)

	// 已取消的票审核为无操作
	approved, err := f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCancelled, approved.Status)
	assert.Equal(t, int64(0), f.score(t, owner.ID))
}

func TestApprove_AwardsPointsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "cuong", "")
	game := testutil.CreateGame(t, f.db, "Bowling", 25000)
	testutil.CreateChallenge(t, f.db, "Play 2", 2, 30)

	info, err := f.svc.Book(ctx, user.ID, &BookRequest{GameID: &game.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.MarkPending(ctx, user.ID, info.ID)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPaid, approved.Status)
	require.NotNil(t, approved.PaidAt)
	assert.Equal(t, int64(10+30), f.score(t, user.ID))
	assert.Equal(t, []int64{info.ID}, f.notifier.calls())

	again, err := f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPaid, again.Status)
	assert.Equal(t, int64(40), f.score(t, user.ID))
	assert.Len(t, f.notifier.calls(), 1)

	_, err = f.svc.Cancel(ctx, user.ID, info.ID)
	assertCode(t, errors.ErrTicketStateInvalid, err)
}

func TestApprove_LegacyUnpaidIsNotReviewable(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "dung", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 50000)
	ticket := testutil.CreateTicket(t, f.db, &models.Ticket{
		UserID: user.ID, EventID: &event.ID, UnitPrice: 50000, OriginalTotal: 50000, TotalPrice: 50000,
		Status: models.TicketStatusUnpaid,
	})

	_, err := f.svc.Approve(context.Background(), ticket.ID)
	assertCode(t, errors.ErrTicketStateInvalid, err)

	info, err := f.svc.MarkPending(context.Background(), user.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPending, info.Status)
}

func TestApprove_NotifierFailureKeepsPayment(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = assert.AnError
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "giang", "")
	game := testutil.CreateGame(t, f.db, "Arcade", 10000)

	info, err := f.svc.Book(ctx, user.ID, &BookRequest{GameID: &game.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.MarkPending(ctx, user.ID, info.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusPaid, f.ticketStatus(t, info.ID))
}

func TestListMineAndAdminList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lan := testutil.CreateUser(t, f.db, "lan", "")
	minh := testutil.CreateUser(t, f.db, "minh", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 50000)
	game := testutil.CreateGame(t, f.db, "Bowling", 10000)

	_, err := f.svc.Book(ctx, lan.ID, &BookRequest{EventID: &event.ID, Quantity: 1})
	require.NoError(t, err)
	second, err := f.svc.Book(ctx, lan.ID, &BookRequest{GameID: &game.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.MarkPending(ctx, lan.ID, second.ID)
	require.NoError(t, err)
	testutil.CreateTicket(t, f.db, &models.Ticket{
		UserID: minh.ID, EventID: &event.ID, UnitPrice: 50000, OriginalTotal: 50000, TotalPrice: 50000,
		Status: models.TicketStatusUnpaid,
	})

	mine, err := f.svc.ListMine(ctx, lan.ID, utils.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)
	assert.Equal(t, "Bowling", mine.List[0].TargetName)

	booked, err := f.svc.AdminList(ctx, "booked", "", utils.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), booked.Total)
	for _, item := range booked.List {
		assert.Equal(t, models.TicketStatusBooked, item.Status)
	}

	pending, err := f.svc.AdminList(ctx, "PENDING", "", utils.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Total)

	byName, err := f.svc.AdminList(ctx, "", "minh", utils.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byName.Total)
}

func TestExpireStaleBookings(t *testing.T) {
	later := time.Now().Add(48 * time.Hour)
	f := newFixture(t, WithClock(func() time.Time { return later }))
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "hai", "")
	event := testutil.CreateEvent(t, f.db, "Gala", 50000)

	booked := testutil.CreateTicket(t, f.db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1})
	legacy := testutil.CreateTicket(t, f.db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, Status: models.TicketStatusUnpaid})
	pending := testutil.CreateTicket(t, f.db, &models.Ticket{UserID: user.ID, EventID: &event.ID, UnitPrice: 1, OriginalTotal: 1, TotalPrice: 1, Status: models.TicketStatusPending})

	n, err := f.svc.ExpireStaleBookings(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, models.TicketStatusCancelled, f.ticketStatus(t, booked.ID))
	assert.Equal(t, models.TicketStatusCancelled, f.ticketStatus(t, legacy.ID))
	assert.Equal(t, models.TicketStatusPending, f.ticketStatus(t, pending.ID))

	n, err = f.svc.ExpireStaleBookings(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, models.TicketStatusBooked, NormalizeStatus(models.TicketStatusUnpaid))
	assert.Equal(t, models.TicketStatusPaid, NormalizeStatus(models.TicketStatusPaid))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestCatalog_OnlyOpenItems(t *testing.T) {
	f := newFixture(t)
	testutil.CreateEvent(t, f.db, "Gala", 100000)
	closed := &models.Event{Name: "Old show", Price: 50000, Status: models.CatalogStatusClosed}
	require.NoError(t, f.db.Create(closed).Error)
	testutil.CreateGame(t, f.db, "Claw", 10000)

	catalog, err := f.svc.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog.Events, 1)
	assert.Equal(t, "Gala", catalog.Events[0].Name)
	require.Len(t, catalog.Games, 1)
	assert.Equal(t, int64(10000), catalog.Games[0].Price)
}
