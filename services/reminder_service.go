package services

import (
	"fmt"
	"time"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/utils"
)

// Reminder frequencies stored in user metadata.
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

const reminderDateLayout = "2006-01-02"

// ReminderStats summarizes one reminder sweep.
type ReminderStats struct {
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// ReminderService sends scheduled reorder reminders and rolls each user's
// schedule forward after a successful send.
type ReminderService struct {
	users     *UserService
	templates *TemplateService
	location  *time.Location
}

func NewReminderService(users *UserService, templates *TemplateService, location *time.Location) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{users: users, templates: templates, location: location}
}

// ProcessReminders walks every user with a reminder schedule and sends the
// reminder template to those whose next date has arrived. Users whose date
// is still in the future are skipped; individual send failures are counted
// and logged without stopping the sweep.
func (s *ReminderService) ProcessReminders() (ReminderStats, error) {
	var stats ReminderStats

	users, err := s.users.UsersWithReminders()
	if err != nil {
		return stats, fmt.Errorf("list reminder users: %w", err)
	}

	now := time.Now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	for i := range users {
		user := &users[i]
		nextDate, _ := user.Metadata[models.MetaNextDate].(string)
		due, err := time.ParseInLocation(reminderDateLayout, nextDate, s.location)
		if err != nil {
			utils.ErrorLogger.Printf("User %s has malformed reminder date %q", user.Phone, nextDate)
			stats.Errors++
			continue
		}
		if due.After(today) {
			stats.Skipped++
			continue
		}
		if s.users.IsBlocked(user) {
			stats.Skipped++
			continue
		}

		if err := s.templates.SendReminder(user); err != nil {
			utils.ErrorLogger.Printf("Reminder send failed for %s: %v", user.Phone, err)
			stats.Errors++
			continue
		}
		stats.Sent++

		frequency, _ := user.Metadata[models.MetaFrequency].(string)
		next := nextOccurrence(due, frequency, today)
		if _, err := s.users.MarkReminderSent(user.Phone, next.Format(reminderDateLayout), frequency, today.Format(reminderDateLayout)); err != nil {
			utils.ErrorLogger.Printf("Failed to advance reminder schedule for %s: %v", user.Phone, err)
			stats.Errors++
		}
	}

	utils.InfoLogger.Printf("Reminder sweep complete: sent=%d errors=%d skipped=%d",
		stats.Sent, stats.Errors, stats.Skipped)
	return stats, nil
}

// SendManual sends the reminder template to one user immediately without
// touching their schedule.
func (s *ReminderService) SendManual(phone string) error {
	user, err := s.users.GetByPhone(phone)
	if err != nil {
		return err
	}
	if s.users.IsBlocked(user) {
		return fmt.Errorf("user %s is blocked", phone)
	}
	return s.templates.SendReminder(user)
}

// nextOccurrence advances a due date by its frequency until it lands after
// today, so a schedule that fell behind does not fire daily to catch up.
func nextOccurrence(due time.Time, frequency string, today time.Time) time.Time {
	next := due
	for !next.After(today) {
		switch frequency {
		case FrequencyBiweekly:
			next = next.AddDate(0, 0, 14)
		case FrequencyMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			next = next.AddDate(0, 0, 7)
		}
	}
	return next
}

// ReminderScheduler fires a daily sweep at a fixed local hour.
type ReminderScheduler struct {
	reminders *ReminderService
	hour      int
	location  *time.Location
	StopChan  chan struct{}
	lastRun   string
}

func NewReminderScheduler(reminders *ReminderService, hour int, location *time.Location) *ReminderScheduler {
	if location == nil {
		location = time.UTC
	}
	return &ReminderScheduler{
		reminders: reminders,
		hour:      hour,
		location:  location,
		StopChan:  make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(time.Now())
			case <-s.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Printf("Reminder scheduler started, sweeping daily at %02d:00 %s", s.hour, s.location)
}

func (s *ReminderScheduler) Stop() {
	close(s.StopChan)
}

// tick runs the sweep once per day when the local hour arrives.
func (s *ReminderScheduler) tick(now time.Time) {
	local := now.In(s.location)
	day := local.Format(reminderDateLayout)
	if local.Hour() != s.hour || s.lastRun == day {
		return
	}
	s.lastRun = day
	if _, err := s.reminders.ProcessReminders(); err != nil {
		utils.ErrorLogger.Printf("Scheduled reminder sweep failed: %v", err)
	}
}
