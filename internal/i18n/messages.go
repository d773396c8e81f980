// Package i18n carries the user-facing message catalog for the supported
// conversation languages.
package i18n

import "bookline/internal/domain"

const (
	KeyWelcome        = "welcome"
	KeySelectStaff    = "select_staff"
	KeySelectDate     = "select_date"
	KeySelectTime     = "select_time"
	KeyConfirm        = "confirm"
	KeyConfirmed      = "confirmed"
	KeyCancelled      = "cancelled"
	KeyPayment        = "payment"
	KeyPaymentSuccess = "payment_success"
	KeyPaymentError   = "payment_error"
	KeyNoStaff        = "no_staff"
	KeyNoDates        = "no_dates"
	KeyNoSlots        = "no_slots"
	KeySlotTaken      = "slot_taken"
	KeyBookingError   = "booking_error"
	KeyGenericError   = "error"
	KeyStartHint      = "start_hint"
	KeyBtnConfirm     = "btn_confirm"
	KeyBtnCancel      = "btn_cancel"
)

var messages = map[domain.Language]map[string]string{
	domain.LanguageEN: {
		KeyWelcome:        "Welcome to our booking system! Please select your language.",
		KeySelectStaff:    "Please select a staff member:",
		KeySelectDate:     "Please select a date:",
		KeySelectTime:     "Please select a time slot:",
		KeyConfirm:        "Please confirm your booking:",
		KeyConfirmed:      "Your booking has been confirmed! You will receive a Zoom link shortly.",
		KeyCancelled:      "Booking cancelled.",
		KeyPayment:        "Please complete the payment to confirm your booking.",
		KeyPaymentSuccess: "Payment successful! Your booking is confirmed.",
		KeyPaymentError:   "Payment failed. Please try again or contact support.",
		KeyNoStaff:        "No staff members are available right now. Please try again later.",
		KeyNoDates:        "No working dates are available for this staff member. Please choose someone else.",
		KeyNoSlots:        "No available time slots for this date.",
		KeySlotTaken:      "Someone booked that slot before you. Please pick another time.",
		KeyBookingError:   "Error creating booking. Please try again.",
		KeyGenericError:   "Something went wrong. Please try again.",
		KeyStartHint:      "Send /start to begin booking.",
		KeyBtnConfirm:     "✅ Confirm",
		KeyBtnCancel:      "❌ Cancel",
	},
	domain.LanguageRU: {
		KeyWelcome:        "Добро пожаловать в нашу систему бронирования! Пожалуйста, выберите язык.",
		KeySelectStaff:    "Пожалуйста, выберите специалиста:",
		KeySelectDate:     "Пожалуйста, выберите дату:",
		KeySelectTime:     "Пожалуйста, выберите время:",
		KeyConfirm:        "Пожалуйста, подтвердите бронирование:",
		KeyConfirmed:      "Ваше бронирование подтверждено! Вы получите ссылку Zoom в ближайшее время.",
		KeyCancelled:      "Бронирование отменено.",
		KeyPayment:        "Пожалуйста, выполните оплату для подтверждения бронирования.",
		KeyPaymentSuccess: "Оплата прошла успешно! Ваше бронирование подтверждено.",
		KeyPaymentError:   "Ошибка оплаты. Пожалуйста, попробуйте снова или обратитесь в поддержку.",
		KeyNoStaff:        "Сейчас нет доступных специалистов. Пожалуйста, попробуйте позже.",
		KeyNoDates:        "У этого специалиста нет рабочих дат. Пожалуйста, выберите другого.",
		KeyNoSlots:        "На выбранную дату нет свободных слотов.",
		KeySlotTaken:      "Кто-то забронировал этот слот раньше вас. Пожалуйста, выберите другое время.",
		KeyBookingError:   "Ошибка при создании бронирования. Пожалуйста, попробуйте снова.",
		KeyGenericError:   "Что-то пошло не так. Пожалуйста, попробуйте снова.",
		KeyStartHint:      "Отправьте /start, чтобы начать бронирование.",
		KeyBtnConfirm:     "✅ Подтвердить",
		KeyBtnCancel:      "❌ Отменить",
	},
	domain.LanguageUZ: {
		KeyWelcome:        "Bizning bron qilish tizimimizga xush kelibsiz! Iltimos, tilni tanlang.",
		KeySelectStaff:    "Iltimos, xodimni tanlang:",
		KeySelectDate:     "Iltimos, sanani tanlang:",
		KeySelectTime:     "Iltimos, vaqtni tanlang:",
		KeyConfirm:        "Iltimos, bronni tasdiqlang:",
		KeyConfirmed:      "Sizning broningiz tasdiqlandi! Tez orada Zoom havolasini olasiz.",
		KeyCancelled:      "Bron bekor qilindi.",
		KeyPayment:        "Bronni tasdiqlash uchun to'lovni amalga oshiring.",
		KeyPaymentSuccess: "To'lov muvaffaqiyatli amalga oshirildi! Sizning broningiz tasdiqlandi.",
		KeyPaymentError:   "To'lov amalga oshmadi. Iltimos, qayta urinib ko'ring yoki yordam xizmatiga murojaat qiling.",
		KeyNoStaff:        "Hozircha xodimlar mavjud emas. Iltimos, keyinroq urinib ko'ring.",
		KeyNoDates:        "Bu xodimning ish kunlari yo'q. Iltimos, boshqasini tanlang.",
		KeyNoSlots:        "Tanlangan sanada bo'sh vaqtlar yo'q.",
		KeySlotTaken:      "Kimdir bu vaqtni sizdan oldin band qildi. Iltimos, boshqa vaqtni tanlang.",
		KeyBookingError:   "Bron yaratishda xatolik. Iltimos, qayta urinib ko'ring.",
		KeyGenericError:   "Nimadir noto'g'ri ketdi. Iltimos, qayta urinib ko'ring.",
		KeyStartHint:      "Bron qilishni boshlash uchun /start yuboring.",
		KeyBtnConfirm:     "✅ Tasdiqlash",
		KeyBtnCancel:      "❌ Bekor qilish",
	},
}

// T resolves a message for the given language, falling back to English when
// either the language or the key is missing.
func T(lang domain.Language, key string) string {
	if msg, ok := messages[lang][key]; ok {
		return msg
	}
	return messages[domain.LanguageEN][key]
}
