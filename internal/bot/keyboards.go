package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/suda/punchcard/internal/models"
	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
)

// Menu button labels double as pseudo-commands.
const (
	BtnGetCode     = "Получить код"
	BtnMyPoints    = "Мои баллы"
	BtnRules       = "Правила акции"
	BtnIssueCode   = "Выдать код"
	BtnCheckPoints = "Проверить баллы"
	BtnAddPoints   = "Начислить баллы"
	BtnDeduct      = "Списать баллы"
	BtnAddStaff    = "Добавить бариста"
	BtnSharePhone  = "Поделиться номером"
)

func customerMenu() any {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnGetCode)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnMyPoints)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnRules)),
	)
}

func staffMenu() any {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnIssueCode)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnCheckPoints)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnRules)),
	)
}

func adminMenu() any {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnIssueCode), tgbotapi.NewKeyboardButton(BtnCheckPoints)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAddPoints), tgbotapi.NewKeyboardButton(BtnDeduct)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAddStaff)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnRules)),
	)
}

func menuFor(role services.Role) any {
	switch role {
	case services.RoleAdmin:
		return adminMenu()
	case services.RoleStaff:
		return staffMenu()
	case services.RoleCustomer:
		return customerMenu()
	default:
		return removeKeyboard()
	}
}

func contactKeyboard() any {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(BtnSharePhone)),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func removeKeyboard() any {
	return tgbotapi.NewRemoveKeyboard(true)
}

// pickKeyboard lists lookup candidates; the payload carries the pending step.
func pickKeyboard(step session.Step, customers []models.Customer) any {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(customers))
	for _, c := range customers {
		label := fmt.Sprintf("%s %s, …%s", c.LastName, c.FirstName, services.PhoneSuffix(c.Phone))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, pickPayload(step, c.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
