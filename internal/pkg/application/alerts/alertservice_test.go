package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/alerts"
	"github.com/diwise/iot-light-monitoring/pkg/types"
	"github.com/matryer/is"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSeverityTiers(t *testing.T) {
	is := is.New(t)

	expected := 100.0

	d, ok := SeverityFor(151, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityCritical)

	d, ok = SeverityFor(49, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityCritical)

	d, ok = SeverityFor(131, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityHigh)

	d, ok = SeverityFor(84, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityMedium)

	_, ok = SeverityFor(110, &expected)
	is.True(!ok)

	d, ok = SeverityFor(150, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityHigh) // exactly 50 is not critical

	d, ok = SeverityFor(125, &expected)
	is.True(ok)
	is.Equal(d.Severity, types.SeverityMedium)
}

func TestSeverityWithoutBaseline(t *testing.T) {
	is := is.New(t)

	zero := 0.0

	_, ok := SeverityFor(100, nil)
	is.True(!ok)

	_, ok = SeverityFor(100, &zero)
	is.True(!ok)
}

func TestDeviationMessages(t *testing.T) {
	is := is.New(t)

	expected := 40.0
	d, _ := SeverityFor(100, &expected)
	is.Equal(d.Message(), "Critical sensor deviation detected: 150.0% difference from expected value")

	expected = 100.0
	d, _ = SeverityFor(60, &expected)
	is.Equal(d.Message(), "High sensor deviation: 40.0% difference from expected value")

	d, _ = SeverityFor(120, &expected)
	is.Equal(d.Message(), "Moderate sensor deviation: 20.0% difference from expected value")
}

func TestDeviationMessagesRoundHalvesUp(t *testing.T) {
	is := is.New(t)

	expected := 16.0

	d, ok := SeverityFor(3, &expected)
	is.True(ok)
	is.Equal(d.Percent, 81.25)
	is.Equal(d.Message(), "Critical sensor deviation detected: 81.3% difference from expected value")

	d, ok = SeverityFor(21, &expected)
	is.True(ok)
	is.Equal(d.Percent, 31.25)
	is.Equal(d.Message(), "High sensor deviation: 31.3% difference from expected value")
}

func TestSignedDeviationIsKept(t *testing.T) {
	is := is.New(t)

	is.Equal(DeviationPercentage(20, 40), -50.0)
	is.Equal(DeviationPercentage(100, 40), 150.0)
}

func TestShouldSuppress(t *testing.T) {
	is := is.New(t)

	is.True(!shouldSuppress(nil, testNow))
	is.True(shouldSuppress(&alerts.Alert{Timestamp: testNow.Add(-299 * time.Second)}, testNow))
	is.True(!shouldSuppress(&alerts.Alert{Timestamp: testNow.Add(-300 * time.Second)}, testNow))
	is.True(!shouldSuppress(&alerts.Alert{Timestamp: testNow.Add(-10 * time.Minute)}, testNow))
}

func TestGenerateAlertCreatesOpenAlert(t *testing.T) {
	is, ctx, repo, sender, svc := testSetup(t)

	a := svc.GenerateAlert(ctx, types.AlertTypeSensorDeviation, types.SeverityHigh, "msg")
	is.True(a != nil)
	is.True(!a.IsResolved)
	is.Equal(a.Timestamp, testNow)

	stored, err := repo.Query(ctx)
	is.NoErr(err)
	is.Equal(len(stored), 1)
	is.Equal(sender.count(), 1)
}

func TestGenerateAlertIsSuppressedWithinWindow(t *testing.T) {
	is, ctx, repo, sender, svc := testSetup(t)

	existing, err := repo.Add(ctx, alerts.Alert{
		Timestamp: testNow.Add(-299 * time.Second),
		AlertType: types.AlertTypeSensorDeviation,
		Severity:  types.SeverityMedium,
		Message:   "first",
	})
	is.NoErr(err)

	a := svc.GenerateAlert(ctx, types.AlertTypeSensorDeviation, types.SeverityCritical, "second")
	is.True(a != nil)
	is.Equal(a.ID, existing.ID)
	is.Equal(a.Message, "first")

	stored, err := repo.Query(ctx)
	is.NoErr(err)
	is.Equal(len(stored), 1)
	is.Equal(sender.count(), 0)
}

func TestGenerateAlertAfterWindowCreatesNewRow(t *testing.T) {
	is, ctx, repo, _, svc := testSetup(t)

	existing, err := repo.Add(ctx, alerts.Alert{
		Timestamp: testNow.Add(-300 * time.Second),
		AlertType: types.AlertTypeSensorDeviation,
		Severity:  types.SeverityMedium,
		Message:   "first",
	})
	is.NoErr(err)

	a := svc.GenerateAlert(ctx, types.AlertTypeSensorDeviation, types.SeverityCritical, "second")
	is.True(a != nil)
	is.True(a.ID != existing.ID)

	stored, err := repo.Query(ctx, database.WithAlertType(types.AlertTypeSensorDeviation), database.WithOnlyOpen())
	is.NoErr(err)
	is.Equal(len(stored), 2) // the older alert is not resolved automatically
}

func TestGenerateAlertIgnoresResolvedAndOtherTypes(t *testing.T) {
	is, ctx, repo, _, svc := testSetup(t)

	resolved, err := repo.Add(ctx, alerts.Alert{Timestamp: testNow.Add(-time.Minute), AlertType: types.AlertTypeSystemStatus, Severity: types.SeverityHigh, Message: "old"})
	is.NoErr(err)
	is.NoErr(repo.Resolve(ctx, resolved.ID, testNow))

	_, err = repo.Add(ctx, alerts.Alert{Timestamp: testNow.Add(-time.Minute), AlertType: types.AlertTypeSensorDeviation, Severity: types.SeverityHigh, Message: "other"})
	is.NoErr(err)

	a := svc.GenerateAlert(ctx, types.AlertTypeSystemStatus, types.SeverityHigh, ConnectionLostMessage)
	is.True(a != nil)
	is.True(a.ID != resolved.ID)
}

func TestGenerateAlertReturnsNilOnStorageFailure(t *testing.T) {
	is := is.New(t)

	svc := New(&failingRepository{}, nil, WithClock(func() time.Time { return testNow }))

	a := svc.GenerateAlert(context.Background(), types.AlertTypeSensorDeviation, types.SeverityHigh, "msg")
	is.True(a == nil)
}

func TestCheckSensorDeviation(t *testing.T) {
	is, ctx, repo, _, svc := testSetup(t)

	expected := 40.0
	a := svc.CheckSensorDeviation(ctx, 100, &expected)
	is.True(a != nil)
	is.Equal(a.AlertType, types.AlertTypeSensorDeviation)
	is.Equal(a.Severity, types.SeverityCritical)
	is.Equal(a.Message, "Critical sensor deviation detected: 150.0% difference from expected value")

	is.Equal(len(mustQuery(t, repo)), 1)

	is.True(svc.CheckSensorDeviation(ctx, 100, nil) == nil)
}

func TestCheckSensorDeviationBelowThreshold(t *testing.T) {
	is, ctx, repo, _, svc := testSetup(t)

	expected := 40.0
	is.True(svc.CheckSensorDeviation(ctx, 42, &expected) == nil)
	is.Equal(len(mustQuery(t, repo)), 0)
}

func TestCheckSystemStatus(t *testing.T) {
	is, ctx, repo, _, svc := testSetup(t)

	is.True(svc.CheckSystemStatus(ctx, testNow.Add(-119*time.Second)) == nil)
	is.True(svc.CheckSystemStatus(ctx, testNow.Add(-120*time.Second)) == nil)
	is.Equal(len(mustQuery(t, repo)), 0)

	a := svc.CheckSystemStatus(ctx, testNow.Add(-121*time.Second))
	is.True(a != nil)
	is.Equal(a.AlertType, types.AlertTypeSystemStatus)
	is.Equal(a.Severity, types.SeverityHigh)
	is.Equal(a.Message, ConnectionLostMessage)
}

func TestResolve(t *testing.T) {
	is, ctx, _, _, svc := testSetup(t)

	a := svc.GenerateAlert(ctx, types.AlertTypeSystemStatus, types.SeverityHigh, ConnectionLostMessage)
	is.True(a != nil)

	resolved, err := svc.Resolve(ctx, a.ID)
	is.NoErr(err)
	is.True(resolved.IsResolved)
	is.True(resolved.ResolvedAt != nil)

	_, err = svc.Resolve(ctx, "no-such-alert")
	is.True(errors.Is(err, ErrAlertNotFound))
}

func mustQuery(t *testing.T, repo alerts.AlertRepository) []alerts.Alert {
	result, err := repo.Query(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func testSetup(t *testing.T) (*is.I, context.Context, alerts.AlertRepository, *recordingSender, AlertService) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := alerts.NewAlertRepository(database.NewSQLiteConnector(ctx))
	is.NoErr(err)

	sender := &recordingSender{}
	svc := New(repo, sender, WithClock(func() time.Time { return testNow }))

	return is, ctx, repo, sender, svc
}

type recordingSender struct {
	mu       sync.Mutex
	messages []events.Message
}

func (s *recordingSender) Send(ctx context.Context, m events.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type failingRepository struct{}

var errStorage = errors.New("storage unavailable")

func (failingRepository) Add(ctx context.Context, a alerts.Alert) (alerts.Alert, error) {
	return alerts.Alert{}, errStorage
}
func (failingRepository) GetByID(ctx context.Context, id string) (alerts.Alert, error) {
	return alerts.Alert{}, errStorage
}
func (failingRepository) LatestOpenByType(ctx context.Context, alertType string) (alerts.Alert, error) {
	return alerts.Alert{}, errStorage
}
func (failingRepository) Query(ctx context.Context, conditions ...database.ConditionFunc) ([]alerts.Alert, error) {
	return nil, errStorage
}
func (failingRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	return errStorage
}
