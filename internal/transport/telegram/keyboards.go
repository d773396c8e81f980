package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"bookline/internal/domain"
	"bookline/internal/i18n"
)

func languageKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🇬🇧 English", CallbackData: languageCallback(domain.LanguageEN)}},
			{{Text: "🇷🇺 Русский", CallbackData: languageCallback(domain.LanguageRU)}},
			{{Text: "🇺🇿 O'zbekcha", CallbackData: languageCallback(domain.LanguageUZ)}},
		},
	}
}

func staffKeyboard(staff []domain.Staff) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, s := range staff {
		btn := models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%s (%d UZS)", s.Name, s.Pricing),
			CallbackData: staffCallback(s.ID),
		}
		rows = append(rows, []models.InlineKeyboardButton{btn})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func dateKeyboard(dates []string) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, d := range dates {
		btn := models.InlineKeyboardButton{
			Text:         d,
			CallbackData: dateCallback(d),
		}
		rows = append(rows, []models.InlineKeyboardButton{btn})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func slotKeyboard(slots []domain.TimeSlot) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, s := range slots {
		btn := models.InlineKeyboardButton{
			Text:         fmt.Sprintf("%s-%s", s.StartTime, s.EndTime),
			CallbackData: slotCallback(s.StartTime, s.EndTime),
		}
		rows = append(rows, []models.InlineKeyboardButton{btn})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func confirmKeyboard(lang domain.Language) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: i18n.T(lang, i18n.KeyBtnConfirm), CallbackData: dataConfirm},
				{Text: i18n.T(lang, i18n.KeyBtnCancel), CallbackData: dataCancel},
			},
		},
	}
}
