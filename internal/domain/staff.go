package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Language string

const (
	LanguageEN Language = "en"
	LanguageRU Language = "ru"
	LanguageUZ Language = "uz"
)

// ParseLanguage maps an incoming language code onto the supported set,
// falling back to English for anything unknown.
func ParseLanguage(code string) Language {
	switch Language(code) {
	case LanguageRU:
		return LanguageRU
	case LanguageUZ:
		return LanguageUZ
	default:
		return LanguageEN
	}
}

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID         int64     `bun:"id,pk,autoincrement"`
	TelegramID string    `bun:"telegram_id,notnull,unique"`
	Name       string    `bun:"name,notnull"`
	Phone      string    `bun:"phone,nullzero"`
	Language   Language  `bun:"language,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

type Staff struct {
	bun.BaseModel `bun:"table:staff"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Name      string `bun:"name,notnull"`
	Pricing   int64  `bun:"pricing,notnull"`
	Available bool   `bun:"available,notnull"`
}

type Schedule struct {
	bun.BaseModel `bun:"table:schedules"`

	ID        int64  `bun:"id,pk,autoincrement"`
	StaffID   int64  `bun:"staff_id,notnull"`
	Date      string `bun:"date,notnull"`
	IsWorking bool   `bun:"is_working,notnull"`
}

// TimeSlot is one bookable half-open interval [StartTime, EndTime) on a
// staff member's schedule for a single date.
type TimeSlot struct {
	bun.BaseModel `bun:"table:time_slots"`

	ID         int64  `bun:"id,pk,autoincrement"`
	ScheduleID int64  `bun:"schedule_id,notnull"`
	StartTime  string `bun:"start_time,notnull"`
	EndTime    string `bun:"end_time,notnull"`
}
