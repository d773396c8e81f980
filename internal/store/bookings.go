package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookline/internal/domain"
)

type UpsertUserInput struct {
	TelegramID string
	Name       string
	Phone      string
	Language   domain.Language
}

type CreateBookingInput struct {
	UserID    string
	StaffID   int64
	Date      string
	StartTime string
	EndTime   string
}

// EnrichmentUpdate carries whichever post-payment enrichment fields were
// obtained; empty fields are left untouched in storage.
type EnrichmentUpdate struct {
	VideoLink       string
	CalendarEventID string
}

func (e EnrichmentUpdate) Empty() bool {
	return e.VideoLink == "" && e.CalendarEventID == ""
}

// BookingStore is the persistence collaborator consumed by the orchestrator.
// Every operation is atomic at the storage layer; CreateBooking detects and
// rejects conflicting claims of the same staff/date/slot with ErrConflict.
type BookingStore interface {
	UpsertUser(ctx context.Context, in UpsertUserInput) (domain.User, error)

	ListAvailableStaff(ctx context.Context) ([]domain.Staff, error)
	GetStaff(ctx context.Context, staffID int64) (domain.Staff, error)
	ListWorkingDates(ctx context.Context, staffID int64, from time.Time, horizonDays int) ([]string, error)
	GetStaffSchedule(ctx context.Context, staffID int64, date string) ([]domain.TimeSlot, error)

	CreateBooking(ctx context.Context, in CreateBookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) error
	ConfirmBooking(ctx context.Context, id uuid.UUID, paymentID string) (domain.Booking, error)
	AttachEnrichment(ctx context.Context, id uuid.UUID, enrich EnrichmentUpdate) error
}
