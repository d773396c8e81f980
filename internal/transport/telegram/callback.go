package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"bookline/internal/domain"
)

// Callback data prefixes. Telegram limits callback data to 64 bytes, so the
// payload after the prefix stays minimal.
const (
	prefixLanguage = "lang:"
	prefixStaff    = "staff:"
	prefixDate     = "date:"
	prefixSlot     = "slot:"
	dataConfirm    = "confirm"
	dataCancel     = "cancel"
)

func languageCallback(lang domain.Language) string {
	return prefixLanguage + string(lang)
}

func staffCallback(staffID int64) string {
	return prefixStaff + strconv.FormatInt(staffID, 10)
}

func dateCallback(date string) string {
	return prefixDate + date
}

// slotCallback packs the slot interval as "start|end".
func slotCallback(startTime, endTime string) string {
	return prefixSlot + startTime + "|" + endTime
}

func parseStaffCallback(data string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefixStaff), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed staff callback %q: %w", data, err)
	}
	return id, nil
}

func parseSlotCallback(data string) (startTime, endTime string, err error) {
	payload := strings.TrimPrefix(data, prefixSlot)
	start, end, ok := strings.Cut(payload, "|")
	if !ok || start == "" || end == "" {
		return "", "", fmt.Errorf("malformed slot callback %q", data)
	}
	return start, end, nil
}
