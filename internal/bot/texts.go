package bot

import (
	"fmt"
	"html"

	"github.com/suda/punchcard/internal/services"
)

const (
	txtAskFullName     = "Введите вашу Фамилию и Имя (например: Иванов Иван)"
	txtBadFullName     = "Введите фамилию и имя через пробел (например: Иванов Иван)."
	txtAskPhone        = "Теперь введите ваш номер телефона (например: 79991234567) или нажмите «" + BtnSharePhone + "»."
	txtBadPhone        = "Введите 11 цифр номера телефона, например 79991234567 или 89991234567."
	txtForeignContact  = "Пожалуйста, поделитесь своим собственным номером."
	txtPhoneTaken      = "Этот номер уже зарегистрирован. Введите другой номер."
	txtRegistered      = "✅ Регистрация завершена!"
	txtAlreadyCustomer = "Вы уже зарегистрированы."
	txtRegisterFirst   = "Сначала зарегистрируйтесь используя /start"
	txtNoAccess        = "У вас нет прав для выполнения этой команды."
	txtHelloAdmin      = "Привет, администратор!"
	txtHelloStaff      = "Привет, бариста!"
	txtCanceled        = "Действие отменено."
	txtUnknown         = "Не понял. Воспользуйтесь кнопками меню или /help."
	txtInternal        = "Что-то пошло не так, попробуйте ещё раз позже."

	txtAskLookup     = "Введите фамилию и последние 4 цифры телефона (например: Иванов 4567)"
	txtBadLookup     = "Нужны фамилия и ровно 4 последние цифры телефона через пробел (например: Иванов 4567)."
	txtNotFound      = "Пользователь не найден."
	txtPickCustomer  = "Найдено несколько клиентов, выберите нужного:"
	txtPickExpired   = "Этот выбор уже неактуален."
	txtAskAmount     = "Сколько баллов?"
	txtBadAmount     = "Введите целое положительное число."
	txtAskStaffID    = "Введите ID пользователя, которого хотите добавить как бариста (например: 123456789):"
	txtBadStaffID    = "ID должен состоять только из цифр."
	txtStaffLoops    = "Вы бариста — используйте кнопки меню."
	txtCodeRequested = "✅ Ваш запрос на код отправлен бариста. Скажите ему свою фамилию."
	txtUsedToday     = "Вы уже получили балл сегодня. Приходите завтра!"
	txtReward        = "🎉 Поздравляем! Вы получаете бесплатный напиток!"
	txtNewStaff      = "Вас добавили как бариста. Нажмите /start, чтобы открыть меню."

	txtCodeInvalid  = "Неверный или уже использованный код."
	txtCodeNotOwned = "Этот код не принадлежит вам."
	txtCodeToday    = "Вы уже использовали код сегодня. Приходите завтра!"
)

func esc(s string) string { return html.EscapeString(s) }

func txtWelcome(shop string, threshold int) string {
	return fmt.Sprintf("Добро пожаловать в кофейню «%s»! ☕️\n\n"+
		"За каждые %d посещений вы получаете %d-й напиток в подарок!\n"+
		"Каждый день бариста выдаёт вам уникальный код — введите его в боте, чтобы получить 1 очко.\n\n%s",
		esc(shop), threshold, threshold+1, txtAskFullName)
}

func txtWelcomeBack(shop string) string {
	return fmt.Sprintf("Добро пожаловать в кофейню «%s»! ☕️", esc(shop))
}

func txtRules(threshold int) string {
	return fmt.Sprintf("Акция: купите %d напитков — %d-й в подарок!\n"+
		"Каждый день бариста выдаёт вам уникальный код — введите его в боте, чтобы получить 1 очко.\n"+
		"Можно получить только 1 очко в день.\n"+
		"После %d очков — бесплатный напиток!", threshold, threshold+1, threshold)
}

func txtBalance(points, threshold, remaining int) string {
	return fmt.Sprintf("У вас %d/%d очков. Осталось до бесплатного напитка: %d", points, threshold, remaining)
}

func txtCustomerBalance(first, last string, points, threshold, remaining int) string {
	return fmt.Sprintf("У %s %s: %d/%d очков. Осталось до бесплатного: %d",
		esc(first), esc(last), points, threshold, remaining)
}

func txtPointEarned(remaining int) string {
	return fmt.Sprintf("Вы получили 1 очко! Осталось до бесплатного напитка: %d", remaining)
}

func txtIssuedCode(first, last, code string) string {
	return fmt.Sprintf("Код для %s %s: <code>%s</code>", esc(first), esc(last), code)
}

func txtCodeAlreadyUsed(first, last string) string {
	return fmt.Sprintf("%s %s уже получил(а) балл сегодня.", esc(first), esc(last))
}

func txtStaffCodeRequest(last, suffix, code string) string {
	return fmt.Sprintf("%s %s: <code>%s</code>", esc(last), suffix, code)
}

func txtAdjusted(first, last string, before, after int) string {
	return fmt.Sprintf("Баллы %s %s: %d → %d", esc(first), esc(last), before, after)
}

func txtPointsAdded(n, points, threshold int) string {
	return fmt.Sprintf("Вам начислено баллов: %d. Сейчас у вас %d/%d.", n, points, threshold)
}

func txtPointsDeducted(n, points, threshold int) string {
	return fmt.Sprintf("С вашего счёта списано баллов: %d. Сейчас у вас %d/%d.", n, points, threshold)
}

func txtStaffAdded(id string) string {
	return fmt.Sprintf("Пользователь с ID %s добавлен как бариста.", esc(id))
}

func txtStaffExists(id string) string {
	return fmt.Sprintf("Пользователь с ID %s уже является бариста.", esc(id))
}

func txtHelp(role services.Role) string {
	switch role {
	case services.RoleAdmin:
		return "Кнопки: «" + BtnIssueCode + "», «" + BtnCheckPoints + "», «" + BtnAddPoints + "», «" +
			BtnDeduct + "», «" + BtnAddStaff + "».\n/new_barista — добавить бариста\n/cancel — отменить действие"
	case services.RoleStaff:
		return "Кнопки: «" + BtnIssueCode + "» и «" + BtnCheckPoints + "».\n/cancel — отменить действие"
	case services.RoleCustomer:
		return "Нажмите «" + BtnGetCode + "» у кассы, затем отправьте сюда 6-значный код от бариста.\n" +
			"«" + BtnMyPoints + "» покажет ваш баланс.\n/cancel — отменить действие"
	default:
		return "Нажмите /start, чтобы зарегистрироваться."
	}
}
