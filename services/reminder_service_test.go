package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/utils"
)

type fakeTemplateSender struct {
	sent []string
	err  error
}

func (f *fakeTemplateSender) SendTemplate(to, templateName, languageCode string, parameters []string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func setupReminderTest(t *testing.T) (*gorm.DB, *UserService, *ReminderService, *fakeTemplateSender) {
	t.Helper()
	utils.InitLogger()

	dsn := fmt.Sprintf("file:reminder_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sender := &fakeTemplateSender{}
	users := NewUserService(db)
	reminders := NewReminderService(users, NewTemplateService(sender), time.UTC)
	return db, users, reminders, sender
}

func seedReminderUser(t *testing.T, db *gorm.DB, users *UserService, phone, nextDate, frequency string) {
	t.Helper()
	assert.NoError(t, db.Create(&models.User{Phone: phone, Name: "Test"}).Error)
	_, err := users.SetReminderSchedule(phone, nextDate, frequency)
	assert.NoError(t, err)
}

func TestProcessRemindersSendsDueAndSkipsFuture(t *testing.T) {
	db, users, reminders, sender := setupReminderTest(t)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	nextMonth := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	seedReminderUser(t, db, users, "5215550400", yesterday, FrequencyWeekly)
	seedReminderUser(t, db, users, "5215550401", nextMonth, FrequencyMonthly)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, []string{"5215550400"}, sender.sent)

	// The schedule rolled forward past today.
	user, err := users.GetByPhone("5215550400")
	assert.NoError(t, err)
	next, _ := user.Metadata[models.MetaNextDate].(string)
	parsed, err := time.Parse("2006-01-02", next)
	assert.NoError(t, err)
	assert.True(t, parsed.After(time.Now().UTC()))
}

func TestProcessRemindersTreatsTodayAsDueInLocalTime(t *testing.T) {
	db, users, _, _ := setupReminderTest(t)

	loc := time.FixedZone("UTC-6", -6*60*60)
	sender := &fakeTemplateSender{}
	reminders := NewReminderService(users, NewTemplateService(sender), loc)

	today := time.Now().In(loc).Format("2006-01-02")
	seedReminderUser(t, db, users, "5215550400", today, FrequencyWeekly)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, []string{"5215550400"}, sender.sent)
}

func TestProcessRemindersPersistsLastSentDate(t *testing.T) {
	db, users, reminders, _ := setupReminderTest(t)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	seedReminderUser(t, db, users, "5215550400", yesterday, FrequencyWeekly)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	// Reload from the database, not the sweep's in-memory copy.
	user, err := users.GetByPhone("5215550400")
	assert.NoError(t, err)
	sent, _ := user.Metadata[models.MetaLastReminderSent].(string)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), sent)
	frequency, _ := user.Metadata[models.MetaFrequency].(string)
	assert.Equal(t, FrequencyWeekly, frequency)
}

func TestProcessRemindersSkipsBlockedUsers(t *testing.T) {
	db, users, reminders, sender := setupReminderTest(t)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	seedReminderUser(t, db, users, "5215550400", yesterday, FrequencyWeekly)
	_, err := users.SetBlocked("5215550400", true)
	assert.NoError(t, err)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, sender.sent)
}

func TestProcessRemindersCountsMalformedDates(t *testing.T) {
	db, users, reminders, sender := setupReminderTest(t)

	seedReminderUser(t, db, users, "5215550400", "not-a-date", FrequencyWeekly)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, sender.sent)
}

func TestProcessRemindersCountsSendFailures(t *testing.T) {
	db, users, reminders, sender := setupReminderTest(t)
	sender.err = fmt.Errorf("graph api down")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	seedReminderUser(t, db, users, "5215550400", yesterday, FrequencyWeekly)

	stats, err := reminders.ProcessReminders()
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Errors)
}

func TestNextOccurrenceCatchesUpLapsedSchedules(t *testing.T) {
	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, -21)

	next := nextOccurrence(due, FrequencyWeekly, today)
	assert.True(t, next.After(today))
	// Weekly cadence is preserved, not reset from today.
	assert.Equal(t, time.Duration(0), next.Sub(due)%(7*24*time.Hour))

	next = nextOccurrence(due, FrequencyBiweekly, today)
	assert.True(t, next.After(today))

	next = nextOccurrence(due, FrequencyMonthly, today)
	assert.True(t, next.After(today))
}

func TestSendManualRejectsBlockedUser(t *testing.T) {
	db, users, reminders, sender := setupReminderTest(t)

	assert.NoError(t, db.Create(&models.User{Phone: "5215550400", Name: "Test"}).Error)
	_, err := users.SetBlocked("5215550400", true)
	assert.NoError(t, err)

	err = reminders.SendManual("5215550400")
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestTemplateServiceValidatesRegistry(t *testing.T) {
	sender := &fakeTemplateSender{}
	svc := NewTemplateService(sender)

	err := svc.Send("5215550400", "no_such_template", nil)
	assert.Error(t, err)

	err = svc.Send("5215550400", "order_reminder", nil)
	assert.Error(t, err)

	err = svc.Send("5215550400", "order_reminder", []string{"Ana"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"5215550400"}, sender.sent)
}
