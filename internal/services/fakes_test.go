package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/testutil"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
)

var (
	// Thursday of the week starting Sunday 2025-06-22, which is week 43.
	testNow         = time.Date(2025, time.June, 26, 12, 0, 0, 0, time.UTC)
	testCurrentWeek = time.Date(2025, time.June, 22, 0, 0, 0, 0, time.UTC)
	testNextWeek    = testCurrentWeek.AddDate(0, 0, 7)
	testPrevWeek    = testCurrentWeek.AddDate(0, 0, -7)
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestResolver(now *time.Time) *week.Resolver {
	return week.NewResolver(time.UTC, time.Date(2025, time.June, 26, 0, 0, 0, 0, time.UTC), 43).
		WithClock(func() time.Time { return *now })
}

type fixture struct {
	store    *testutil.MemStore
	schedule *ScheduleService
	resolver *week.Resolver
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: testutil.NewMemStore(), now: testNow}
	f.resolver = newTestResolver(&f.now)
	f.schedule = NewScheduleService(f.store, f.store, f.resolver, validator.NewStaffValidator([]int{2, 3, 4, 5}), newTestLogger())
	return f
}

// addStaff inserts a staff member directly into the fake store.
func (f *fixture) addStaff(name string, terminal int, order *int) int64 {
	member := &models.Staff{Name: name, Terminal: terminal, DisplayOrder: order}
	_ = f.store.Create(context.Background(), member)
	return member.ID
}

func intPtr(i int) *int { return &i }
