//go:build integration

package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/testutil/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mysqlContainer *containers.MySQLContainer

func TestMain(m *testing.M) {
	var err error
	mysqlContainer, err = containers.NewMySQLContainer(context.Background(), nil)
	if err != nil {
		panic("failed to create MySQL container: " + err.Error())
	}

	code := m.Run()

	if err := mysqlContainer.Terminate(context.Background()); err != nil {
		panic("failed to terminate MySQL container: " + err.Error())
	}
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, mysqlContainer.Reset(t.Context(),
		"alert_rules", "notifications", "notification_logs", "questionnaire_assignments"))
}

func TestMySQL_ClaimAlertRunIsExclusive(t *testing.T) {
	resetTables(t)
	db := mysqlContainer.GetDB(t)
	repo := repository.NewRuleRepository(db)
	ctx := t.Context()

	rule := &entities.AlertRule{
		Name: "Open risks", Active: true, EntityType: entities.EntityRisk,
		Severity: entities.SeverityWarning, Operator: "GT", Threshold: 5, CooldownMinutes: 60,
	}
	require.NoError(t, repo.CreateAlertRule(ctx, rule))

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	notAfter := now.Add(-time.Hour)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimAlertRun(ctx, rule.ID, notAfter, now)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins, "exactly one concurrent claim wins")

	got, err := repo.GetAlertRule(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(now))
}

func TestMySQL_CountSentSinceAndPurge(t *testing.T) {
	resetTables(t)
	db := mysqlContainer.GetDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := t.Context()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, l := range []entities.NotificationLog{
		{UserID: "u1", Channel: entities.ChannelInApp, Status: entities.OutcomeSent, SentAt: now.Add(-10 * time.Minute)},
		{UserID: "u1", Channel: entities.ChannelEmail, Status: entities.OutcomeFailed, SentAt: now.Add(-5 * time.Minute)},
		{UserID: "u1", Channel: entities.ChannelInApp, Status: entities.OutcomeSent, SentAt: now.Add(-2 * time.Hour)},
	} {
		require.NoError(t, repo.CreateLog(ctx, &l))
	}
	n, err := repo.CountSentSince(ctx, "u1", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	old := now.AddDate(0, 0, -120)
	for _, item := range []entities.Notification{
		{UserID: "u1", Kind: entities.KindAlert, Title: "a", Severity: entities.SeverityInfo, Read: true, CreatedAt: old},
		{UserID: "u1", Kind: entities.KindAlert, Title: "b", Severity: entities.SeverityInfo, CreatedAt: old},
		{UserID: "u1", Kind: entities.KindAlert, Title: "c", Severity: entities.SeverityInfo, Read: true, CreatedAt: now},
	} {
		require.NoError(t, repo.CreateNotification(ctx, &item))
	}
	deleted, err := repo.PurgeNotifications(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestMySQL_DeadlineWindowIsHalfOpen(t *testing.T) {
	resetTables(t)
	db := mysqlContainer.GetDB(t)
	repo := repository.NewDomainRepository(db)
	ctx := t.Context()

	from := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	at := func(t time.Time) *time.Time { return &t }
	require.NoError(t, db.Create([]entities.QuestionnaireAssignment{
		{ID: "start", Name: "start", State: "pendiente", DueDate: at(from)},
		{ID: "inside", Name: "inside", State: "pendiente", DueDate: at(from.Add(23 * time.Hour))},
		{ID: "end", Name: "end", State: "pendiente", DueDate: at(to)},
		{ID: "done", Name: "done", State: entities.StateCompleted, DueDate: at(from.Add(time.Hour))},
	}).Error)

	rows, err := repo.ListAssignmentsDue(ctx, from, to)
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"start", "inside"}, ids)
}
