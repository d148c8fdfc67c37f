package scheduler_test

import (
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/pkg/notification"
	"Surplus-Share-Backend/pkg/pickup"
	"Surplus-Share-Backend/pkg/scheduler"
	"Surplus-Share-Backend/pkg/surplus"
	"Surplus-Share-Backend/pkg/surplus/surplustest"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *recordingNotifier) Notify(ctx context.Context, r notification.Recipient, templateKey string, payload map[string]any) (notification.Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]string{}
	}
	n.sent[templateKey] = append(n.sent[templateKey], r.UserID)
	return notification.OutcomeSent, nil
}

func (n *recordingNotifier) count(templateKey string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[templateKey])
}

type fixture struct {
	repo      *surplustest.MemoryRepository
	notifier  *recordingNotifier
	scheduler scheduler.SchedulerService
	now       time.Time
	donor     entities.User
	receiver  entities.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, time.UTC)
}

// newFixtureIn builds a fixture whose application zone is appZone.
func newFixtureIn(t *testing.T, appZone *time.Location) *fixture {
	t.Helper()
	f := &fixture{
		repo:     surplustest.NewMemoryRepository(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		donor:    entities.User{ID: uuid.New(), Name: "Toko Roti", Email: "donor@example.com", Role: entities.RoleDonor, EmailNotifications: true},
		receiver: entities.User{ID: uuid.New(), Name: "Dapur Umum", Email: "receiver@example.com", Role: entities.RoleReceiver, EmailNotifications: true},
	}
	clock := func() time.Time { return f.now }
	f.repo.Clock = clock
	f.repo.AddUser(f.donor)
	f.repo.AddUser(f.receiver)

	auth, err := pickup.NewAuthorizer(pickup.DefaultTolerance(), appZone)
	require.NoError(t, err)
	service := surplus.NewSurplusService(f.repo, auth, nil, f.notifier, nil, surplus.WithClock(clock))

	cfg := scheduler.DefaultConfig()
	cfg.Location = appZone
	f.scheduler, err = scheduler.NewSchedulerService(f.repo, service, f.notifier, cfg, clock)
	require.NoError(t, err)
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) putPost(status entities.PostStatus, expiresIn time.Duration, pickupDate *time.Time, from, to string) entities.SurplusPost {
	post := entities.SurplusPost{
		ID:              uuid.New(),
		DonorID:         f.donor.ID,
		Title:           "Roti sisa",
		FoodType:        "bakery",
		QuantityValue:   decimal.NewFromInt(3),
		QuantityUnit:    "kg",
		ExpiryDate:      time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Timezone:        "UTC",
		EffectiveExpiry: f.now.Add(expiresIn),
		Status:          status,
		PickupDate:      pickupDate,
	}
	if from != "" {
		post.PickupFrom = ptr(from)
		post.PickupTo = ptr(to)
	}
	if status == entities.PostStatusReadyForPickup {
		post.OTPCode = ptr("123456")
	}
	f.repo.PutPost(post)
	if status == entities.PostStatusClaimed || status == entities.PostStatusReadyForPickup {
		f.repo.PutClaim(entities.Claim{
			ID:            uuid.New(),
			SurplusPostID: post.ID,
			ReceiverID:    f.receiver.ID,
			Status:        entities.ClaimStatusActive,
		})
	}
	return post
}

func (f *fixture) status(t *testing.T, id uuid.UUID) entities.PostStatus {
	t.Helper()
	p, err := f.repo.GetPostByID(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func TestNewSchedulerServiceRejectsNonPositiveThreshold(t *testing.T) {
	cfg := scheduler.DefaultConfig()
	cfg.ExpiryThresholds = []int{24, 0}
	_, err := scheduler.NewSchedulerService(nil, nil, nil, cfg, nil)
	assert.Error(t, err)
}

func TestAdvanceToReadyForPickup(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	open := f.putPost(entities.PostStatusClaimed, 72*time.Hour, &today, "08:00", "12:00")
	later := f.putPost(entities.PostStatusClaimed, 72*time.Hour, &tomorrow, "08:00", "12:00")
	unscheduled := f.putPost(entities.PostStatusClaimed, 72*time.Hour, nil, "", "")

	report, err := f.scheduler.AdvanceToReadyForPickup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.SweepReport{Sweep: scheduler.SweepReadyForPickup, Scanned: 3, Advanced: 2, Skipped: 1}, report)

	assert.Equal(t, entities.PostStatusReadyForPickup, f.status(t, open.ID))
	assert.Equal(t, entities.PostStatusClaimed, f.status(t, later.ID))
	assert.Equal(t, entities.PostStatusReadyForPickup, f.status(t, unscheduled.ID))

	p, err := f.repo.GetPostByID(context.Background(), open.ID)
	require.NoError(t, err)
	require.NotNil(t, p.OTPCode)
	assert.Regexp(t, `^[0-9]{6}$`, *p.OTPCode)
	assert.Equal(t, 2, f.notifier.count(notification.TemplatePickupReadyDonor))
	assert.Equal(t, 2, f.notifier.count(notification.TemplatePickupReadyReceiver))
}

func TestAdvanceToReadyForPickupUsesClaimWindow(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	post := f.putPost(entities.PostStatusClaimed, 72*time.Hour, &today, "08:00", "12:00")

	claims := f.repo.Claims(post.ID)
	require.Len(t, claims, 1)
	claim := claims[0]
	claim.ConfirmedPickupDate = ptr(today.AddDate(0, 0, 2))
	claim.ConfirmedPickupFrom = ptr("10:00")
	claim.ConfirmedPickupTo = ptr("11:00")
	f.repo.PutClaim(claim)

	report, err := f.scheduler.AdvanceToReadyForPickup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, entities.PostStatusClaimed, f.status(t, post.ID))
}

func TestAdvanceToNotCompleted(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	closed := f.putPost(entities.PostStatusReadyForPickup, 72*time.Hour, &yesterday, "08:00", "12:00")
	ongoing := f.putPost(entities.PostStatusReadyForPickup, 72*time.Hour, &today, "08:00", "12:00")
	unscheduled := f.putPost(entities.PostStatusReadyForPickup, 72*time.Hour, nil, "", "")

	report, err := f.scheduler.AdvanceToNotCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Advanced)
	assert.Equal(t, 2, report.Skipped)

	assert.Equal(t, entities.PostStatusNotCompleted, f.status(t, closed.ID))
	assert.Equal(t, entities.PostStatusReadyForPickup, f.status(t, ongoing.ID))
	assert.Equal(t, entities.PostStatusReadyForPickup, f.status(t, unscheduled.ID))

	claims := f.repo.Claims(closed.ID)
	require.Len(t, claims, 1)
	assert.Equal(t, entities.ClaimStatusCancelled, claims[0].Status)
	assert.Equal(t, 2, f.notifier.count(notification.TemplatePickupNotCompleted))
}

func TestSweepsReadWindowInPostTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	f := newFixtureIn(t, jakarta)
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	claimed := f.putPost(entities.PostStatusClaimed, 72*time.Hour, &day, "10:00", "12:00")
	claimed.Timezone = "America/Toronto"
	f.repo.PutPost(claimed)
	ready := f.putPost(entities.PostStatusReadyForPickup, 72*time.Hour, &day, "10:00", "12:00")
	ready.Timezone = "America/Toronto"
	f.repo.PutPost(ready)

	// 13:00 UTC is 20:00 in Jakarta, past a Jakarta window, but 09:00 EDT.
	f.now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	report, err := f.scheduler.AdvanceToReadyForPickup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, entities.PostStatusClaimed, f.status(t, claimed.ID))

	report, err = f.scheduler.AdvanceToNotCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, entities.PostStatusReadyForPickup, f.status(t, ready.ID))

	// 12:30 EDT.
	f.now = time.Date(2025, 3, 10, 16, 30, 0, 0, time.UTC)
	report, err = f.scheduler.AdvanceToReadyForPickup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Advanced)
	report, err = f.scheduler.AdvanceToNotCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Advanced)
	assert.Equal(t, entities.PostStatusNotCompleted, f.status(t, claimed.ID))
	assert.Equal(t, entities.PostStatusNotCompleted, f.status(t, ready.ID))
}

func TestExpireOverduePosts(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	available := f.putPost(entities.PostStatusAvailable, -time.Minute, nil, "", "")
	ready := f.putPost(entities.PostStatusReadyForPickup, -time.Hour, &today, "08:00", "12:00")
	fresh := f.putPost(entities.PostStatusAvailable, time.Hour, nil, "", "")
	done := f.putPost(entities.PostStatusCompleted, -time.Hour, nil, "", "")

	report, err := f.scheduler.ExpireOverduePosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.SweepReport{Sweep: scheduler.SweepExpired, Scanned: 2, Advanced: 2}, report)

	assert.Equal(t, entities.PostStatusExpired, f.status(t, available.ID))
	assert.Equal(t, entities.PostStatusExpired, f.status(t, ready.ID))
	assert.Equal(t, entities.PostStatusAvailable, f.status(t, fresh.ID))
	assert.Equal(t, entities.PostStatusCompleted, f.status(t, done.ID))

	p, err := f.repo.GetPostByID(context.Background(), ready.ID)
	require.NoError(t, err)
	assert.Nil(t, p.OTPCode)
	assert.Equal(t, entities.ClaimStatusCancelled, f.repo.Claims(ready.ID)[0].Status)
	assert.Equal(t, 2, f.notifier.count(notification.TemplatePostExpired))
}

func TestSweepContinuesPastFailingPost(t *testing.T) {
	f := newFixture(t)
	broken := f.putPost(entities.PostStatusAvailable, -time.Minute, nil, "", "")
	healthy := f.putPost(entities.PostStatusAvailable, -time.Minute, nil, "", "")
	f.repo.FailOn[broken.ID] = errors.New("connection reset")

	report, err := f.scheduler.ExpireOverduePosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Advanced)
	assert.Equal(t, 1, report.Failed)

	assert.Equal(t, entities.PostStatusAvailable, f.status(t, broken.ID))
	assert.Equal(t, entities.PostStatusExpired, f.status(t, healthy.ID))
}

func TestSendExpiringSoonNotificationsDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putPost(entities.PostStatusAvailable, 40*time.Hour, nil, "", "")

	report, err := f.scheduler.SendExpiringSoonNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Advanced)

	report, err = f.scheduler.SendExpiringSoonNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Advanced)
	assert.Equal(t, 1, report.Skipped)

	assert.Equal(t, 1, f.notifier.count(notification.TemplateExpiringSoon))
	assert.Equal(t, 1, f.repo.LedgerSize())
}

func TestSendExpiringSoonNotificationsPerBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putPost(entities.PostStatusAvailable, 40*time.Hour, nil, "", "")

	_, err := f.scheduler.SendExpiringSoonNotifications(ctx)
	require.NoError(t, err)

	// 20 hours later the post has crossed into the 24h bucket.
	f.now = f.now.Add(20 * time.Hour)
	report, err := f.scheduler.SendExpiringSoonNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Advanced)

	assert.Equal(t, 2, f.notifier.count(notification.TemplateExpiringSoon))
	assert.Equal(t, 2, f.repo.LedgerSize())
}

func TestSendExpiringSoonNotificationsIgnoresIneligible(t *testing.T) {
	f := newFixture(t)
	f.putPost(entities.PostStatusAvailable, 72*time.Hour, nil, "", "")
	f.putPost(entities.PostStatusClaimed, 10*time.Hour, nil, "", "")
	f.putPost(entities.PostStatusAvailable, -time.Hour, nil, "", "")

	report, err := f.scheduler.SendExpiringSoonNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 0, f.notifier.count(notification.TemplateExpiringSoon))
	assert.Equal(t, 0, f.repo.LedgerSize())
}

func TestExpiryWarningKey(t *testing.T) {
	id := uuid.MustParse("7f1d5c0e-3b1a-4f7e-9a55-2c6f4d1e8b90")
	assert.Equal(t, "expiry-warning:7f1d5c0e-3b1a-4f7e-9a55-2c6f4d1e8b90:24h", scheduler.ExpiryWarningKey(id, 24))
}

func TestRunAllExpiresBeforeAdvancing(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	post := f.putPost(entities.PostStatusClaimed, -time.Minute, &today, "08:00", "12:00")

	reports := f.scheduler.RunAll(context.Background())
	require.Len(t, reports, 4)
	assert.Equal(t, scheduler.SweepExpired, reports[0].Sweep)
	assert.Equal(t, 1, reports[0].Advanced)
	assert.Equal(t, 0, reports[1].Scanned)
	assert.Equal(t, entities.PostStatusExpired, f.status(t, post.ID))
}

func TestRunnerStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.putPost(entities.PostStatusAvailable, -time.Minute, nil, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	runner := scheduler.NewRunner(f.scheduler, time.Hour)
	runner.Start(ctx)

	require.Eventually(t, func() bool {
		return f.notifier.count(notification.TemplatePostExpired) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-runner.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
