package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"bookline/internal/domain"
	"bookline/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) UpsertUser(ctx context.Context, in store.UpsertUserInput) (domain.User, error) {
	m := domain.User{
		TelegramID: in.TelegramID,
		Name:       in.Name,
		Phone:      in.Phone,
		Language:   in.Language,
	}

	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (telegram_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("phone = COALESCE(EXCLUDED.phone, users.phone)").
		Set("language = EXCLUDED.language").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.User{}, err
	}
	return m, nil
}

func (r *BookingRepo) ListAvailableStaff(ctx context.Context) ([]domain.Staff, error) {
	var rows []domain.Staff
	err := r.db.NewSelect().
		Model(&rows).
		Where("available").
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) GetStaff(ctx context.Context, staffID int64) (domain.Staff, error) {
	var m domain.Staff
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", staffID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Staff{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Staff{}, err
	}
	return m, nil
}

func (r *BookingRepo) ListWorkingDates(ctx context.Context, staffID int64, from time.Time, horizonDays int) ([]string, error) {
	fromDate := from.Format(domain.DateLayout)
	untilDate := from.AddDate(0, 0, horizonDays).Format(domain.DateLayout)

	var rows []domain.Schedule
	err := r.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("is_working").
		Where("date >= ?", fromDate).
		Where("date < ?", untilDate).
		OrderExpr("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(rows))
	for _, s := range rows {
		dates = append(dates, s.Date)
	}
	return dates, nil
}

func (r *BookingRepo) GetStaffSchedule(ctx context.Context, staffID int64, date string) ([]domain.TimeSlot, error) {
	var rows []domain.TimeSlot
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN schedules AS s ON s.id = time_slot.schedule_id").
		Where("s.staff_id = ?", staffID).
		Where("s.date = ?", date).
		Where("s.is_working").
		Where("NOT EXISTS (SELECT 1 FROM bookings AS b WHERE b.staff_id = ? AND b.date = ? AND b.start_time = time_slot.start_time AND b.status <> ?)",
			staffID, date, domain.BookingStatusCancelled).
		OrderExpr("time_slot.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) CreateBooking(ctx context.Context, in store.CreateBookingInput) (domain.Booking, error) {
	m := domain.Booking{
		UserID:    in.UserID,
		StaffID:   in.StaffID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Status:    domain.BookingStatusPending,
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStaffDay(ctx, tx, in.StaffID, in.Date); err != nil {
			return err
		}

		taken, err := tx.NewSelect().
			Model((*domain.Booking)(nil)).
			Where("staff_id = ?", in.StaffID).
			Where("date = ?", in.Date).
			Where("start_time = ?", in.StartTime).
			Where("status <> ?", domain.BookingStatusCancelled).
			Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrConflict
		}

		_, err = tx.NewInsert().Model(&m).Exec(ctx)
		if err != nil {
			if isConflictErr(err) {
				return store.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return m, nil
}

func lockStaffDay(ctx context.Context, tx bun.Tx, staffID int64, date string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", fmt.Sprintf("%d:%s", staffID, date)).Exec(ctx)
	return err
}

// isConflictErr reports whether err is a unique (23505) or exclusion (23P01)
// constraint violation.
func isConflictErr(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var m domain.Booking
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return m, nil
}

func (r *BookingRepo) CancelBooking(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", domain.BookingStatusCancelled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.BookingStatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.finalizeMiss(ctx, id, domain.BookingStatusCancelled)
	}
	return nil
}

func (r *BookingRepo) ConfirmBooking(ctx context.Context, id uuid.UUID, paymentID string) (domain.Booking, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", domain.BookingStatusConfirmed).
		Set("payment_id = ?", paymentID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.BookingStatusPending).
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		existing, getErr := r.GetBooking(ctx, id)
		if getErr != nil {
			return domain.Booking{}, getErr
		}
		if existing.Status == domain.BookingStatusConfirmed {
			return existing, store.ErrAlreadyConfirmed
		}
		return domain.Booking{}, store.ErrConflict
	}
	return r.GetBooking(ctx, id)
}

// finalizeMiss classifies a guarded status update that matched no rows.
func (r *BookingRepo) finalizeMiss(ctx context.Context, id uuid.UUID, want domain.BookingStatus) error {
	existing, err := r.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == want {
		return nil
	}
	return store.ErrConflict
}

func (r *BookingRepo) AttachEnrichment(ctx context.Context, id uuid.UUID, enrich store.EnrichmentUpdate) error {
	if enrich.Empty() {
		return nil
	}

	q := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", domain.BookingStatusConfirmed)
	if enrich.VideoLink != "" {
		q = q.Set("video_link = ?", enrich.VideoLink)
	}
	if enrich.CalendarEventID != "" {
		q = q.Set("calendar_event_id = ?", enrich.CalendarEventID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
