// Package booking implements the booking orchestrator: a per-conversation
// state machine that walks a user from language selection to a paid,
// confirmed appointment, calling out to persistence, payment, video and
// calendar collaborators at each transition.
//
// Payment success is the irrevocable commit point. Everything before it
// fails fatally and keeps the conversation at its current stage; everything
// after it (video meeting, calendar event) is best-effort enrichment that
// never rolls the booking back.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookline/internal/bitrix"
	"bookline/internal/domain"
	"bookline/internal/payment"
	"bookline/internal/session"
	"bookline/internal/store"
	"bookline/internal/zoom"
)

var ErrNoSession = errors.New("no active session")

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type PaymentProvider interface {
	CreateInvoice(ctx context.Context, in payment.InvoiceInput) (payment.Invoice, error)
	VerifyPayment(ctx context.Context, attempt payment.Attempt) bool
}

type VideoProvider interface {
	CreateMeeting(ctx context.Context, in zoom.MeetingInput) (zoom.Meeting, error)
}

type CalendarProvider interface {
	CreateEvent(ctx context.Context, in bitrix.EventInput) (string, error)
}

type Config struct {
	// HorizonDays bounds how far ahead working dates are offered.
	HorizonDays int
	// Timezone is the wall-clock zone bookings are scheduled in.
	Timezone string
	// ProviderTimeout bounds every outbound collaborator call.
	ProviderTimeout time.Duration
}

const (
	defaultHorizonDays     = 14
	defaultProviderTimeout = 15 * time.Second
)

type Service struct {
	store    store.BookingStore
	payments PaymentProvider
	video    VideoProvider
	calendar CalendarProvider
	sessions *session.Store

	horizonDays     int
	timezone        string
	location        *time.Location
	providerTimeout time.Duration
	log             *slog.Logger

	now func() time.Time
}

func NewService(
	st store.BookingStore,
	payments PaymentProvider,
	video VideoProvider,
	calendar CalendarProvider,
	sessions *session.Store,
	cfg Config,
	log *slog.Logger,
) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	return &Service{
		store:           st,
		payments:        payments,
		video:           video,
		calendar:        calendar,
		sessions:        sessions,
		horizonDays:     horizon,
		timezone:        tz,
		location:        loc,
		providerTimeout: timeout,
		log:             log.With(slog.String("component", "booking")),
		now:             time.Now,
	}, nil
}

// Start opens (or restarts) a conversation at the language prompt.
func (s *Service) Start(userID, name, username string) {
	s.sessions.Save(domain.NewSession(userID, name, username))
}

type StaffChoices struct {
	Language domain.Language
	Staff    []domain.Staff
}

// ChooseLanguage records the user's language, persists the profile
// best-effort, and offers the available staff. An empty Staff slice is the
// explicit "no staff available" outcome; the conversation stays at the
// language prompt so the user can retry later.
func (s *Service) ChooseLanguage(ctx context.Context, userID, code string) (StaffChoices, error) {
	sess, err := s.sessionAt(userID, domain.StageSelectingLanguage)
	if err != nil {
		return StaffChoices{}, err
	}

	lang := domain.ParseLanguage(code)

	// Profile persistence must not block the flow.
	upsertCtx, cancel := s.callContext(ctx)
	_, upsertErr := s.store.UpsertUser(upsertCtx, store.UpsertUserInput{
		TelegramID: userID,
		Name:       sess.Name,
		Language:   lang,
	})
	cancel()
	if upsertErr != nil {
		s.log.Warn("user upsert failed", slog.Any("err", upsertErr), slog.String("user_id", userID))
	}

	listCtx, cancel := s.callContext(ctx)
	defer cancel()
	staff, err := s.store.ListAvailableStaff(listCtx)
	if err != nil {
		return StaffChoices{}, fmt.Errorf("list staff: %w", err)
	}

	sess.Language = lang
	if len(staff) == 0 {
		s.sessions.Save(sess)
		return StaffChoices{Language: lang}, nil
	}

	if err := sess.Apply(domain.EventLanguageChosen); err != nil {
		return StaffChoices{}, err
	}
	s.sessions.Save(sess)
	return StaffChoices{Language: lang, Staff: staff}, nil
}

type DateChoices struct {
	Language domain.Language
	Dates    []string
}

// ChooseStaff offers the selected staff member's working dates over the
// configured horizon. An empty Dates slice is the explicit empty outcome;
// the conversation stays at staff selection.
func (s *Service) ChooseStaff(ctx context.Context, userID string, staffID int64) (DateChoices, error) {
	sess, err := s.sessionAt(userID, domain.StageSelectingStaff)
	if err != nil {
		return DateChoices{}, err
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	dates, err := s.store.ListWorkingDates(callCtx, staffID, s.today(), s.horizonDays)
	if err != nil {
		return DateChoices{}, fmt.Errorf("list working dates: %w", err)
	}

	if len(dates) == 0 {
		return DateChoices{Language: sess.Language}, nil
	}

	sess.StaffID = staffID
	if err := sess.Apply(domain.EventStaffChosen); err != nil {
		return DateChoices{}, err
	}
	s.sessions.Save(sess)
	return DateChoices{Language: sess.Language, Dates: dates}, nil
}

type SlotChoices struct {
	Language domain.Language
	Date     string
	Slots    []domain.TimeSlot
}

// ChooseDate offers the free slots on the chosen date. An empty Slots slice
// is the explicit empty outcome; the conversation stays at date selection.
func (s *Service) ChooseDate(ctx context.Context, userID, date string) (SlotChoices, error) {
	sess, err := s.sessionAt(userID, domain.StageSelectingDate)
	if err != nil {
		return SlotChoices{}, err
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return SlotChoices{}, validationError("invalid date")
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	slots, err := s.store.GetStaffSchedule(callCtx, sess.StaffID, date)
	if err != nil {
		return SlotChoices{}, fmt.Errorf("get staff schedule: %w", err)
	}

	if len(slots) == 0 {
		return SlotChoices{Language: sess.Language, Date: date}, nil
	}

	sess.Date = date
	if err := sess.Apply(domain.EventDateChosen); err != nil {
		return SlotChoices{}, err
	}
	s.sessions.Save(sess)
	return SlotChoices{Language: sess.Language, Date: date, Slots: slots}, nil
}

type ConfirmationSummary struct {
	Language domain.Language
	Booking  domain.Booking
	Staff    domain.Staff
}

// ChooseSlot claims the slot by creating a pending booking. A concurrent
// claim of the same slot surfaces as store.ErrConflict and leaves the
// conversation at time selection so the user can pick again.
func (s *Service) ChooseSlot(ctx context.Context, userID, startTime, endTime string) (ConfirmationSummary, error) {
	sess, err := s.sessionAt(userID, domain.StageSelectingTime)
	if err != nil {
		return ConfirmationSummary{}, err
	}
	if _, err := time.Parse(domain.TimeLayout, startTime); err != nil {
		return ConfirmationSummary{}, validationError("invalid start time")
	}
	if _, err := time.Parse(domain.TimeLayout, endTime); err != nil {
		return ConfirmationSummary{}, validationError("invalid end time")
	}

	staffCtx, cancel := s.callContext(ctx)
	staff, err := s.store.GetStaff(staffCtx, sess.StaffID)
	cancel()
	if err != nil {
		return ConfirmationSummary{}, fmt.Errorf("get staff: %w", err)
	}

	createCtx, cancel := s.callContext(ctx)
	defer cancel()
	booking, err := s.store.CreateBooking(createCtx, store.CreateBookingInput{
		UserID:    userID,
		StaffID:   sess.StaffID,
		Date:      sess.Date,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.log.Info("slot already taken",
				slog.Int64("staff_id", sess.StaffID),
				slog.String("date", sess.Date),
				slog.String("start_time", startTime),
			)
		}
		return ConfirmationSummary{Language: sess.Language}, err
	}

	sess.StartTime = startTime
	sess.EndTime = endTime
	sess.BookingID = booking.ID
	if err := sess.Apply(domain.EventSlotBooked); err != nil {
		return ConfirmationSummary{}, err
	}
	s.sessions.Save(sess)

	s.log.Info("booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("user_id", userID),
		slog.Int64("staff_id", booking.StaffID),
		slog.String("date", booking.Date),
	)

	return ConfirmationSummary{Language: sess.Language, Booking: booking, Staff: staff}, nil
}

// Confirm requests an invoice for the pending booking. On failure the
// conversation remains at confirmation; no second booking is ever created.
func (s *Service) Confirm(ctx context.Context, userID string) (payment.Invoice, domain.Language, error) {
	sess, err := s.sessionAt(userID, domain.StageConfirming)
	if err != nil {
		return payment.Invoice{}, domain.LanguageEN, err
	}

	getCtx, cancel := s.callContext(ctx)
	booking, err := s.store.GetBooking(getCtx, sess.BookingID)
	cancel()
	if err != nil {
		return payment.Invoice{}, sess.Language, fmt.Errorf("get booking: %w", err)
	}

	staffCtx, cancel := s.callContext(ctx)
	staff, err := s.store.GetStaff(staffCtx, booking.StaffID)
	cancel()
	if err != nil {
		return payment.Invoice{}, sess.Language, fmt.Errorf("get staff: %w", err)
	}

	invCtx, cancel := s.callContext(ctx)
	defer cancel()
	invoice, err := s.payments.CreateInvoice(invCtx, payment.InvoiceInput{
		Title:       fmt.Sprintf("Booking with %s", staff.Name),
		Description: fmt.Sprintf("Date: %s\nTime: %s-%s", booking.Date, booking.StartTime, booking.EndTime),
		Payload:     booking.ID.String(),
		Amount:      staff.Pricing,
	})
	if err != nil {
		s.log.Warn("invoice creation failed", slog.Any("err", err), slog.String("booking_id", booking.ID.String()))
		return payment.Invoice{}, sess.Language, fmt.Errorf("create invoice: %w", err)
	}

	if err := sess.Apply(domain.EventConfirmed); err != nil {
		return payment.Invoice{}, sess.Language, err
	}
	s.sessions.Save(sess)
	return invoice, sess.Language, nil
}

// Cancel cancels the pending booking and ends the conversation. The slot is
// released by persistence as a consequence of the status change.
func (s *Service) Cancel(ctx context.Context, userID string) (domain.Language, error) {
	sess, err := s.sessionAt(userID, domain.StageConfirming)
	if err != nil {
		return domain.LanguageEN, err
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.store.CancelBooking(callCtx, sess.BookingID); err != nil {
		return sess.Language, fmt.Errorf("cancel booking: %w", err)
	}

	if err := sess.Apply(domain.EventCancelled); err != nil {
		return sess.Language, err
	}
	s.sessions.Delete(userID)

	s.log.Info("booking cancelled",
		slog.String("booking_id", sess.BookingID.String()),
		slog.String("user_id", userID),
	)
	return sess.Language, nil
}

// VerifyPayment is the pre-checkout guard. A rejected attempt is never
// charged by the gateway.
func (s *Service) VerifyPayment(ctx context.Context, attempt payment.Attempt) bool {
	if _, err := uuid.Parse(attempt.Payload); err != nil {
		s.log.Warn("payment attempt with malformed payload rejected", slog.String("payload", attempt.Payload))
		return false
	}
	return s.payments.VerifyPayment(ctx, attempt)
}

type PaymentResult struct {
	Language domain.Language
	// JoinURL is empty when video provisioning failed; the booking is still
	// confirmed.
	JoinURL string
	// AlreadyProcessed marks a duplicate payment notification that was
	// absorbed without re-running enrichment.
	AlreadyProcessed bool
}

// CompletePayment handles a successful-payment notification. Marking the
// booking confirmed is the commit point; the video meeting, calendar event
// and enrichment write that follow are best-effort and never fail the
// payment.
func (s *Service) CompletePayment(ctx context.Context, userID, payload, paymentID string) (PaymentResult, error) {
	lang := domain.LanguageEN
	sess, hasSession := s.sessions.Load(userID)
	if hasSession {
		lang = sess.Language
	}

	bookingID, err := uuid.Parse(payload)
	if err != nil {
		s.failSession(userID, hasSession, sess)
		return PaymentResult{Language: lang}, fmt.Errorf("malformed payment payload %q: %w", payload, err)
	}

	confirmCtx, cancel := s.callContext(ctx)
	booking, err := s.store.ConfirmBooking(confirmCtx, bookingID, paymentID)
	cancel()
	if errors.Is(err, store.ErrAlreadyConfirmed) {
		s.log.Info("duplicate payment notification ignored", slog.String("booking_id", bookingID.String()))
		s.finishSession(userID, hasSession, sess)
		return PaymentResult{Language: lang, JoinURL: booking.VideoLink, AlreadyProcessed: true}, nil
	}
	if err != nil {
		s.failSession(userID, hasSession, sess)
		return PaymentResult{Language: lang}, fmt.Errorf("confirm booking: %w", err)
	}

	s.log.Info("payment confirmed",
		slog.String("booking_id", booking.ID.String()),
		slog.String("payment_id", paymentID),
		slog.String("user_id", userID),
	)

	// Committed. Nothing below may undo the confirmation.
	joinURL := s.enrich(ctx, booking, sess)

	s.finishSession(userID, hasSession, sess)
	return PaymentResult{Language: lang, JoinURL: joinURL}, nil
}

// enrich provisions the video meeting and calendar event and records
// whatever succeeded in one persistence update. Every failure here is
// logged and absorbed.
func (s *Service) enrich(ctx context.Context, booking domain.Booking, sess domain.Session) string {
	log := s.log.With(slog.String("booking_id", booking.ID.String()))

	staffName := ""
	staffCtx, cancel := s.callContext(ctx)
	staff, err := s.store.GetStaff(staffCtx, booking.StaffID)
	cancel()
	if err != nil {
		log.Warn("staff lookup for enrichment failed", slog.Any("err", err))
	} else {
		staffName = staff.Name
	}

	start, err := booking.StartsAt(s.location)
	if err != nil {
		log.Error("booking start time unparsable, skipping enrichment", slog.Any("err", err))
		return ""
	}
	end, err := booking.EndsAt(s.location)
	if err != nil {
		log.Error("booking end time unparsable, skipping enrichment", slog.Any("err", err))
		return ""
	}
	minutes, err := booking.DurationMinutes()
	if err != nil {
		log.Error("booking duration unparsable, skipping enrichment", slog.Any("err", err))
		return ""
	}

	topic := "Session"
	if staffName != "" {
		topic = fmt.Sprintf("Session with %s", staffName)
	}

	joinURL := ""
	videoCtx, cancel := s.callContext(ctx)
	meeting, err := s.video.CreateMeeting(videoCtx, zoom.MeetingInput{
		Topic:           topic,
		StartTime:       start,
		DurationMinutes: minutes,
		Timezone:        s.timezone,
	})
	cancel()
	if err != nil {
		log.Warn("video meeting creation failed", slog.Any("err", err))
	} else {
		joinURL = meeting.JoinURL
	}

	meetingLine := "Link will be provided"
	if joinURL != "" {
		meetingLine = joinURL
	}
	var attendees []string
	if sess.Username != "" {
		attendees = []string{sess.Username}
	}

	eventID := ""
	calCtx, cancel := s.callContext(ctx)
	eventID, err = s.calendar.CreateEvent(calCtx, bitrix.EventInput{
		Title:       fmt.Sprintf("Session with %s", sess.Name),
		Description: fmt.Sprintf("Zoom meeting: %s\n\nClient: %s\nStaff: %s", meetingLine, sess.Name, staffName),
		Start:       start,
		End:         end,
		Attendees:   attendees,
	})
	cancel()
	if err != nil {
		log.Warn("calendar event creation failed", slog.Any("err", err))
		eventID = ""
	}

	enrichment := store.EnrichmentUpdate{VideoLink: joinURL, CalendarEventID: eventID}
	if !enrichment.Empty() {
		updCtx, cancel := s.callContext(ctx)
		defer cancel()
		if err := s.store.AttachEnrichment(updCtx, booking.ID, enrichment); err != nil {
			log.Warn("enrichment update failed", slog.Any("err", err))
		}
	}

	return joinURL
}

func (s *Service) failSession(userID string, hasSession bool, sess domain.Session) {
	if hasSession {
		if err := sess.Apply(domain.EventPaymentFailed); err != nil {
			s.log.Warn("session failure transition rejected", slog.Any("err", err), slog.String("user_id", userID))
		}
	}
	s.sessions.Delete(userID)
}

func (s *Service) finishSession(userID string, hasSession bool, sess domain.Session) {
	if hasSession {
		if err := sess.Apply(domain.EventPaymentSucceeded); err != nil {
			s.log.Warn("session success transition rejected", slog.Any("err", err), slog.String("user_id", userID))
		}
	}
	s.sessions.Delete(userID)
}

func (s *Service) sessionAt(userID string, stage domain.Stage) (domain.Session, error) {
	sess, ok := s.sessions.Load(userID)
	if !ok {
		return domain.Session{}, ErrNoSession
	}
	if sess.Stage != stage {
		return domain.Session{}, fmt.Errorf("%w: at %s, expected %s", domain.ErrInvalidTransition, sess.Stage, stage)
	}
	return sess, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.providerTimeout)
}

func (s *Service) today() time.Time {
	return s.now().In(s.location)
}
