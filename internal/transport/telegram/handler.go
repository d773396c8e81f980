// Package telegram is the bot-facing transport. It translates Telegram
// updates into orchestrator calls and renders the results back as localized
// messages, inline keyboards and invoices.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"bookline/internal/domain"
	"bookline/internal/i18n"
	"bookline/internal/payment"
	"bookline/internal/service/booking"
	"bookline/internal/store"
)

type Handler struct {
	svc *booking.Service
	log *slog.Logger
}

func NewHandler(svc *booking.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc: svc,
		log: log.With(slog.String("component", "telegram")),
	}
}

// HandleUpdate is the bot's default handler. Every update type the flow
// consumes is routed here.
func (h *Handler) HandleUpdate(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.PreCheckoutQuery != nil {
		h.handlePreCheckout(ctx, b, update.PreCheckoutQuery)
		return
	}

	if update.CallbackQuery != nil {
		h.handleCallback(ctx, b, update.CallbackQuery)
		return
	}

	if update.Message != nil {
		msg := update.Message
		if msg.SuccessfulPayment != nil {
			h.handleSuccessfulPayment(ctx, b, msg)
			return
		}
		if strings.HasPrefix(msg.Text, "/start") {
			h.handleStart(ctx, b, msg)
			return
		}
		h.sendText(ctx, b, msg.Chat.ID, i18n.T(domain.LanguageEN, i18n.KeyStartHint), nil)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *tgbot.Bot, msg *models.Message) {
	if msg.From == nil {
		return
	}
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	h.svc.Start(userID(msg.From), name, msg.From.Username)

	h.sendText(ctx, b, msg.Chat.ID, i18n.T(domain.LanguageEN, i18n.KeyWelcome), languageKeyboard())
}

func (h *Handler) handleCallback(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery) {
	if cb.Message.Message == nil || cb.From.ID == 0 {
		h.answerCallback(ctx, b, cb.ID, "")
		return
	}
	chatID := cb.Message.Message.Chat.ID
	uid := userID(&cb.From)
	data := cb.Data

	switch {
	case strings.HasPrefix(data, prefixLanguage):
		h.handleLanguage(ctx, b, cb, chatID, uid, strings.TrimPrefix(data, prefixLanguage))
	case strings.HasPrefix(data, prefixStaff):
		h.handleStaff(ctx, b, cb, chatID, uid, data)
	case strings.HasPrefix(data, prefixDate):
		h.handleDate(ctx, b, cb, chatID, uid, strings.TrimPrefix(data, prefixDate))
	case strings.HasPrefix(data, prefixSlot):
		h.handleSlot(ctx, b, cb, chatID, uid, data)
	case data == dataConfirm:
		h.handleConfirm(ctx, b, cb, chatID, uid)
	case data == dataCancel:
		h.handleCancel(ctx, b, cb, chatID, uid)
	default:
		h.answerCallback(ctx, b, cb.ID, "")
	}
}

func (h *Handler) handleLanguage(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid, code string) {
	choices, err := h.svc.ChooseLanguage(ctx, uid, code)
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, domain.ParseLanguage(code), err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")

	if len(choices.Staff) == 0 {
		h.sendText(ctx, b, chatID, i18n.T(choices.Language, i18n.KeyNoStaff), nil)
		return
	}
	h.sendText(ctx, b, chatID, i18n.T(choices.Language, i18n.KeySelectStaff), staffKeyboard(choices.Staff))
}

func (h *Handler) handleStaff(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid, data string) {
	staffID, err := parseStaffCallback(data)
	if err != nil {
		h.log.Warn("bad staff callback", slog.Any("err", err))
		h.answerCallback(ctx, b, cb.ID, "")
		return
	}

	dates, err := h.svc.ChooseStaff(ctx, uid, staffID)
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, dates.Language, err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")

	if len(dates.Dates) == 0 {
		h.sendText(ctx, b, chatID, i18n.T(dates.Language, i18n.KeyNoDates), nil)
		return
	}
	h.sendText(ctx, b, chatID, i18n.T(dates.Language, i18n.KeySelectDate), dateKeyboard(dates.Dates))
}

func (h *Handler) handleDate(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid, date string) {
	slots, err := h.svc.ChooseDate(ctx, uid, date)
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, slots.Language, err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")

	if len(slots.Slots) == 0 {
		h.sendText(ctx, b, chatID, i18n.T(slots.Language, i18n.KeyNoSlots), nil)
		return
	}
	h.sendText(ctx, b, chatID, i18n.T(slots.Language, i18n.KeySelectTime), slotKeyboard(slots.Slots))
}

func (h *Handler) handleSlot(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid, data string) {
	startTime, endTime, err := parseSlotCallback(data)
	if err != nil {
		h.log.Warn("bad slot callback", slog.Any("err", err))
		h.answerCallback(ctx, b, cb.ID, "")
		return
	}

	summary, err := h.svc.ChooseSlot(ctx, uid, startTime, endTime)
	if errors.Is(err, store.ErrConflict) {
		// Someone else claimed the slot; the conversation stays at time
		// selection so the user can pick again.
		h.answerCallback(ctx, b, cb.ID, i18n.T(summary.Language, i18n.KeySlotTaken))
		h.sendText(ctx, b, chatID, i18n.T(summary.Language, i18n.KeySlotTaken), nil)
		return
	}
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, summary.Language, err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")

	text := fmt.Sprintf("%s\n\n%s\n%s %s-%s\n%d UZS",
		i18n.T(summary.Language, i18n.KeyConfirm),
		summary.Staff.Name,
		summary.Booking.Date, summary.Booking.StartTime, summary.Booking.EndTime,
		summary.Staff.Pricing,
	)
	h.sendText(ctx, b, chatID, text, confirmKeyboard(summary.Language))
}

func (h *Handler) handleConfirm(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid string) {
	invoice, lang, err := h.svc.Confirm(ctx, uid)
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, lang, err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")

	h.sendText(ctx, b, chatID, i18n.T(lang, i18n.KeyPayment), nil)
	if _, err := b.SendInvoice(ctx, &tgbot.SendInvoiceParams{
		ChatID:         chatID,
		Title:          invoice.Title,
		Description:    invoice.Description,
		Payload:        invoice.Payload,
		ProviderToken:  invoice.ProviderToken,
		Currency:       invoice.Currency,
		Prices:         []models.LabeledPrice{{Label: invoice.PriceLabel, Amount: int(invoice.AmountMinor)}},
		StartParameter: invoice.StartParameter,
	}); err != nil {
		h.log.Error("send invoice failed", slog.Any("err", err), slog.Int64("chat_id", chatID))
		h.sendText(ctx, b, chatID, i18n.T(lang, i18n.KeyGenericError), nil)
	}
}

func (h *Handler) handleCancel(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, uid string) {
	lang, err := h.svc.Cancel(ctx, uid)
	if err != nil {
		h.replyFlowError(ctx, b, cb, chatID, lang, err)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "")
	h.sendText(ctx, b, chatID, i18n.T(lang, i18n.KeyCancelled), nil)
}

func (h *Handler) handlePreCheckout(ctx context.Context, b *tgbot.Bot, q *models.PreCheckoutQuery) {
	ok := h.svc.VerifyPayment(ctx, payment.Attempt{
		Payload:     q.InvoicePayload,
		Currency:    q.Currency,
		TotalAmount: int64(q.TotalAmount),
	})

	params := &tgbot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: q.ID,
		OK:                 ok,
	}
	if !ok {
		params.ErrorMessage = i18n.T(domain.LanguageEN, i18n.KeyPaymentError)
	}
	if _, err := b.AnswerPreCheckoutQuery(ctx, params); err != nil {
		h.log.Error("answer pre-checkout failed", slog.Any("err", err), slog.String("query_id", q.ID))
	}
}

func (h *Handler) handleSuccessfulPayment(ctx context.Context, b *tgbot.Bot, msg *models.Message) {
	if msg.From == nil {
		return
	}
	sp := msg.SuccessfulPayment

	res, err := h.svc.CompletePayment(ctx, userID(msg.From), sp.InvoicePayload, sp.ProviderPaymentChargeID)
	if err != nil {
		h.log.Error("payment completion failed", slog.Any("err", err), slog.String("payload", sp.InvoicePayload))
		h.sendText(ctx, b, msg.Chat.ID, i18n.T(res.Language, i18n.KeyPaymentError), nil)
		return
	}

	text := i18n.T(res.Language, i18n.KeyPaymentSuccess)
	if res.JoinURL != "" {
		text += "\n\nZoom: " + res.JoinURL
	} else if !res.AlreadyProcessed {
		text += "\n\n" + i18n.T(res.Language, i18n.KeyConfirmed)
	}
	h.sendText(ctx, b, msg.Chat.ID, text, nil)
}

// replyFlowError maps orchestrator errors onto user-facing replies. Stale
// callbacks from earlier stages are acknowledged silently.
func (h *Handler) replyFlowError(ctx context.Context, b *tgbot.Bot, cb *models.CallbackQuery, chatID int64, lang domain.Language, err error) {
	switch {
	case errors.Is(err, booking.ErrNoSession):
		h.answerCallback(ctx, b, cb.ID, "")
		h.sendText(ctx, b, chatID, i18n.T(lang, i18n.KeyStartHint), nil)
	case errors.Is(err, domain.ErrInvalidTransition):
		h.log.Debug("stale callback ignored", slog.Any("err", err))
		h.answerCallback(ctx, b, cb.ID, "")
	default:
		var ve *booking.ValidationError
		if errors.As(err, &ve) {
			h.log.Warn("rejected input", slog.Any("err", err))
		} else {
			h.log.Error("flow operation failed", slog.Any("err", err), slog.String("data", cb.Data))
		}
		h.answerCallback(ctx, b, cb.ID, "")
		h.sendText(ctx, b, chatID, i18n.T(lang, i18n.KeyGenericError), nil)
	}
}

func (h *Handler) sendText(ctx context.Context, b *tgbot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	}); err != nil {
		h.log.Error("send message failed", slog.Any("err", err), slog.Int64("chat_id", chatID))
	}
}

func (h *Handler) answerCallback(ctx context.Context, b *tgbot.Bot, callbackID, text string) {
	if _, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		h.log.Warn("answer callback failed", slog.Any("err", err))
	}
}

func userID(u *models.User) string {
	return strconv.FormatInt(u.ID, 10)
}
