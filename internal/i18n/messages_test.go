package i18n

import (
	"testing"

	"bookline/internal/domain"
)

func TestT_AllLanguagesCoverAllKeys(t *testing.T) {
	keys := []string{
		KeyWelcome, KeySelectStaff, KeySelectDate, KeySelectTime,
		KeyConfirm, KeyConfirmed, KeyCancelled,
		KeyPayment, KeyPaymentSuccess, KeyPaymentError,
		KeyNoStaff, KeyNoDates, KeyNoSlots, KeySlotTaken,
		KeyBookingError, KeyGenericError,
		KeyStartHint, KeyBtnConfirm, KeyBtnCancel,
	}

	for _, lang := range []domain.Language{domain.LanguageEN, domain.LanguageRU, domain.LanguageUZ} {
		for _, key := range keys {
			if T(lang, key) == "" {
				t.Fatalf("missing %s message for %s", key, lang)
			}
		}
	}
}

func TestT_FallsBackToEnglish(t *testing.T) {
	if got := T(domain.Language("de"), KeyWelcome); got != messages[domain.LanguageEN][KeyWelcome] {
		t.Fatalf("T(de) = %q, want English fallback", got)
	}
	if got := T(domain.LanguageRU, "no_such_key"); got != "" {
		t.Fatalf("T(unknown key) = %q, want empty", got)
	}
}
