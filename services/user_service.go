package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
)

// UserService handles user lookup and the per-user flags stored in metadata.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// FindOrCreateByPhone resolves the user for an inbound message, creating a
// record on first contact and refreshing last-seen either way.
func (s *UserService) FindOrCreateByPhone(phone, name string) (*models.User, error) {
	var user models.User
	err := s.db.Where("phone = ?", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now()
		user = models.User{Phone: phone, Name: name, LastSeenAt: &now}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"last_seen_at": time.Now()}
	if name != "" && user.Name != name {
		updates["name"] = name
		user.Name = name
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByPhone returns the user for a phone number, if any.
func (s *UserService) GetByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsBlocked reports whether the user has been flagged blocked by an admin.
func (s *UserService) IsBlocked(user *models.User) bool {
	if user == nil || user.Metadata == nil {
		return false
	}
	blocked, _ := user.Metadata[models.MetaBlocked].(bool)
	return blocked
}

// SetBlocked flips the blocked flag for a phone number.
func (s *UserService) SetBlocked(phone string, blocked bool) (*models.User, error) {
	user, err := s.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if user.Metadata == nil {
		user.Metadata = map[string]interface{}{}
	}
	user.Metadata[models.MetaBlocked] = blocked
	if blocked {
		user.Metadata[models.MetaBlockedAt] = time.Now().Format(time.RFC3339)
	} else {
		delete(user.Metadata, models.MetaBlockedAt)
	}
	if err := s.db.Model(user).Update("metadata", user.Metadata).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetReminderSchedule stores the next reminder date and repeat frequency in
// the user's metadata.
func (s *UserService) SetReminderSchedule(phone, nextDate, frequency string) (*models.User, error) {
	user, err := s.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if user.Metadata == nil {
		user.Metadata = map[string]interface{}{}
	}
	user.Metadata[models.MetaNextDate] = nextDate
	user.Metadata[models.MetaFrequency] = frequency
	if err := s.db.Model(user).Update("metadata", user.Metadata).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// MarkReminderSent records a delivered reminder and rolls the schedule to
// its next date in one metadata update.
func (s *UserService) MarkReminderSent(phone, nextDate, frequency, sentOn string) (*models.User, error) {
	user, err := s.GetByPhone(phone)
	if err != nil {
		return nil, err
	}
	if user.Metadata == nil {
		user.Metadata = map[string]interface{}{}
	}
	user.Metadata[models.MetaNextDate] = nextDate
	user.Metadata[models.MetaFrequency] = frequency
	user.Metadata[models.MetaLastReminderSent] = sentOn
	if err := s.db.Model(user).Update("metadata", user.Metadata).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UsersWithReminders lists every user carrying a reminder schedule. The
// metadata column is unindexed JSON so filtering happens in memory; the
// customer base for a single shop stays small enough for that.
func (s *UserService) UsersWithReminders() ([]models.User, error) {
	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.Metadata == nil {
			continue
		}
		if _, ok := u.Metadata[models.MetaNextDate]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
