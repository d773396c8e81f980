package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"bookline/internal/domain"
	"bookline/internal/store"
)

func TestPostgresIntegration_BookingLifecycle(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("BOOKLINE_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("BOOKLINE_TEST_DATABASE_URL not set")
	}

	// Single connection so the session-level search_path covers every query.
	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "bookline_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema error: %v", err)
	}
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path error: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("migrations error: %v", err)
	}

	repo := NewBookingRepo(db)

	var staffID int64
	if err := db.NewRaw("INSERT INTO staff (name, pricing, available) VALUES (?, ?, TRUE) RETURNING id",
		"Dr. Aziza", int64(150000)).Scan(ctx, &staffID); err != nil {
		t.Fatalf("seed staff error: %v", err)
	}
	var scheduleID int64
	if err := db.NewRaw("INSERT INTO schedules (staff_id, date, is_working) VALUES (?, ?, TRUE) RETURNING id",
		staffID, "2024-06-10").Scan(ctx, &scheduleID); err != nil {
		t.Fatalf("seed schedule error: %v", err)
	}
	if _, err := db.NewRaw("INSERT INTO time_slots (schedule_id, start_time, end_time) VALUES (?, ?, ?)",
		scheduleID, "09:00", "10:00").Exec(ctx); err != nil {
		t.Fatalf("seed slot error: %v", err)
	}

	user, err := repo.UpsertUser(ctx, store.UpsertUserInput{
		TelegramID: "42", Name: "Alice", Language: domain.LanguageEN,
	})
	if err != nil {
		t.Fatalf("UpsertUser error: %v", err)
	}
	again, err := repo.UpsertUser(ctx, store.UpsertUserInput{
		TelegramID: "42", Name: "Alice", Language: domain.LanguageRU,
	})
	if err != nil {
		t.Fatalf("UpsertUser again error: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("upsert created a second user: %d vs %d", again.ID, user.ID)
	}
	if again.Language != domain.LanguageRU {
		t.Fatalf("language = %s, want %s", again.Language, domain.LanguageRU)
	}

	dates, err := repo.ListWorkingDates(ctx, staffID, mustParseDate(t, "2024-06-01"), 14)
	if err != nil {
		t.Fatalf("ListWorkingDates error: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-06-10" {
		t.Fatalf("dates = %v, want [2024-06-10]", dates)
	}

	slots, err := repo.GetStaffSchedule(ctx, staffID, "2024-06-10")
	if err != nil {
		t.Fatalf("GetStaffSchedule error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}

	booking, err := repo.CreateBooking(ctx, store.CreateBookingInput{
		UserID: "42", StaffID: staffID, Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if booking.Status != domain.BookingStatusPending {
		t.Fatalf("status = %s, want pending", booking.Status)
	}

	// Same slot again must be rejected.
	_, err = repo.CreateBooking(ctx, store.CreateBookingInput{
		UserID: "43", StaffID: staffID, Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("conflict err = %v, want %v", err, store.ErrConflict)
	}

	slots, err = repo.GetStaffSchedule(ctx, staffID, "2024-06-10")
	if err != nil {
		t.Fatalf("GetStaffSchedule error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d after booking, want 0", len(slots))
	}

	if err := repo.CancelBooking(ctx, booking.ID); err != nil {
		t.Fatalf("CancelBooking error: %v", err)
	}

	// The slot is bookable again after cancellation.
	slots, err = repo.GetStaffSchedule(ctx, staffID, "2024-06-10")
	if err != nil {
		t.Fatalf("GetStaffSchedule error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d after cancel, want 1", len(slots))
	}

	second, err := repo.CreateBooking(ctx, store.CreateBookingInput{
		UserID: "42", StaffID: staffID, Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("CreateBooking after cancel error: %v", err)
	}

	confirmed, err := repo.ConfirmBooking(ctx, second.ID, "charge-1")
	if err != nil {
		t.Fatalf("ConfirmBooking error: %v", err)
	}
	if confirmed.Status != domain.BookingStatusConfirmed || confirmed.PaymentID != "charge-1" {
		t.Fatalf("confirmed = %+v, want confirmed with charge-1", confirmed)
	}

	// A duplicate payment notification is a no-op.
	_, err = repo.ConfirmBooking(ctx, second.ID, "charge-2")
	if !errors.Is(err, store.ErrAlreadyConfirmed) {
		t.Fatalf("duplicate confirm err = %v, want %v", err, store.ErrAlreadyConfirmed)
	}

	if err := repo.AttachEnrichment(ctx, second.ID, store.EnrichmentUpdate{
		VideoLink: "https://zoom.us/j/1", CalendarEventID: "77",
	}); err != nil {
		t.Fatalf("AttachEnrichment error: %v", err)
	}
	got, err := repo.GetBooking(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if got.VideoLink != "https://zoom.us/j/1" || got.CalendarEventID != "77" {
		t.Fatalf("enrichment = %q/%q, want link and event id", got.VideoLink, got.CalendarEventID)
	}
	if got.PaymentID != "charge-1" {
		t.Fatalf("payment id = %q, want charge-1", got.PaymentID)
	}
}

func mustParseDate(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		t.Fatalf("parse date error: %v", err)
	}
	return d
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
