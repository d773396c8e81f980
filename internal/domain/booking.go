package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CanTransitionTo reports whether a status change is legal. A booking only
// ever moves pending->confirmed or pending->cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == BookingStatusPending &&
		(next == BookingStatusConfirmed || next == BookingStatusCancelled)
}

const (
	// DateLayout is the wall-clock date format used for schedules and bookings.
	DateLayout = "2006-01-02"
	// TimeLayout is the wall-clock slot time format.
	TimeLayout = "15:04"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid"`
	UserID          string        `bun:"user_id,notnull"`
	StaffID         int64         `bun:"staff_id,notnull"`
	Date            string        `bun:"date,notnull"`
	StartTime       string        `bun:"start_time,notnull"`
	EndTime         string        `bun:"end_time,notnull"`
	Status          BookingStatus `bun:"status,notnull"`
	PaymentID       string        `bun:"payment_id,nullzero"`
	VideoLink       string        `bun:"video_link,nullzero"`
	CalendarEventID string        `bun:"calendar_event_id,nullzero"`
	CreatedAt       time.Time     `bun:"created_at,notnull"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// StartsAt combines the booking's date and start time in the given location.
func (b Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return combineDateTime(b.Date, b.StartTime, loc)
}

// EndsAt combines the booking's date and end time in the given location.
func (b Booking) EndsAt(loc *time.Location) (time.Time, error) {
	return combineDateTime(b.Date, b.EndTime, loc)
}

// DurationMinutes is the session length derived from the slot interval.
func (b Booking) DurationMinutes() (int, error) {
	start, err := combineDateTime(b.Date, b.StartTime, time.UTC)
	if err != nil {
		return 0, err
	}
	end, err := combineDateTime(b.Date, b.EndTime, time.UTC)
	if err != nil {
		return 0, err
	}
	if !end.After(start) {
		return 0, fmt.Errorf("end time %q is not after start time %q", b.EndTime, b.StartTime)
	}
	return int(end.Sub(start) / time.Minute), nil
}

func combineDateTime(date, wallTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+wallTime, loc)
}
