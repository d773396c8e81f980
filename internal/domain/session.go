package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid stage transition")

// Stage is a conversation's position in the booking flow.
type Stage int

const (
	StageSelectingLanguage Stage = iota
	StageSelectingStaff
	StageSelectingDate
	StageSelectingTime
	StageConfirming
	StageProcessingPayment
	StageConfirmed
	StageCancelled
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageSelectingLanguage:
		return "selecting_language"
	case StageSelectingStaff:
		return "selecting_staff"
	case StageSelectingDate:
		return "selecting_date"
	case StageSelectingTime:
		return "selecting_time"
	case StageConfirming:
		return "confirming"
	case StageProcessingPayment:
		return "processing_payment"
	case StageConfirmed:
		return "confirmed"
	case StageCancelled:
		return "cancelled"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Terminal reports whether the conversation is finished at this stage.
func (s Stage) Terminal() bool {
	return s == StageConfirmed || s == StageCancelled || s == StageFailed
}

// Event is a user choice or collaborator outcome that drives the stage machine.
type Event int

const (
	EventLanguageChosen Event = iota
	EventStaffChosen
	EventDateChosen
	EventSlotBooked
	EventConfirmed
	EventCancelled
	EventPaymentSucceeded
	EventPaymentFailed
)

func (e Event) String() string {
	switch e {
	case EventLanguageChosen:
		return "language_chosen"
	case EventStaffChosen:
		return "staff_chosen"
	case EventDateChosen:
		return "date_chosen"
	case EventSlotBooked:
		return "slot_booked"
	case EventConfirmed:
		return "confirmed"
	case EventCancelled:
		return "cancelled"
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventPaymentFailed:
		return "payment_failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var stageTransitions = map[Stage]map[Event]Stage{
	StageSelectingLanguage: {
		EventLanguageChosen: StageSelectingStaff,
	},
	StageSelectingStaff: {
		EventStaffChosen: StageSelectingDate,
	},
	StageSelectingDate: {
		EventDateChosen: StageSelectingTime,
	},
	StageSelectingTime: {
		EventSlotBooked: StageConfirming,
	},
	StageConfirming: {
		EventConfirmed: StageProcessingPayment,
		EventCancelled: StageCancelled,
	},
	StageProcessingPayment: {
		EventPaymentSucceeded: StageConfirmed,
		EventPaymentFailed:    StageFailed,
	},
}

// Next returns the stage that follows s when event occurs, or
// ErrInvalidTransition when the event is not legal at this stage.
func (s Stage) Next(event Event) (Stage, error) {
	next, ok := stageTransitions[s][event]
	if !ok {
		return s, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, event, s)
	}
	return next, nil
}

// Session is the per-conversation state of one booking attempt. It is owned
// by a single conversation and mutated only through Apply and the selection
// setters of the orchestrator.
type Session struct {
	UserID    string
	Name      string
	Username  string
	Language  Language
	Stage     Stage
	StaffID   int64
	Date      string
	StartTime string
	EndTime   string
	BookingID uuid.UUID
}

// NewSession starts a conversation at the language prompt.
func NewSession(userID, name, username string) Session {
	return Session{
		UserID:   userID,
		Name:     name,
		Username: username,
		Language: LanguageEN,
		Stage:    StageSelectingLanguage,
	}
}

// Apply advances the session's stage through the transition table.
func (s *Session) Apply(event Event) error {
	next, err := s.Stage.Next(event)
	if err != nil {
		return err
	}
	s.Stage = next
	return nil
}
