package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/locale"
)

const (
	msgMenuRU = `Шпион: социальная игра на дедукцию.

/create - создать приватную комнату
/join <код> - войти в комнату
/begin - начать раунд (владелец)
/find - найти случайную игру
/cancel - отменить поиск
/earlyvote - досрочное голосование
/leave - покинуть комнату
/pack <набор> - выбрать набор локаций
/profile - ваш профиль
/shop - магазин`

	msgMenuEN = `Spy: a social deduction game.

/create - create a private room
/join <code> - join a room
/begin - start the round (owner)
/find - find a random game
/cancel - cancel search
/earlyvote - vote to end the discussion early
/leave - leave the room
/pack <name> - choose a location pack
/profile - your profile
/shop - shop`

	msgHintRU = "Вы не в комнате. Наберите /help, чтобы увидеть команды."
	msgHintEN = "You are not in a room. Type /help to see the commands."

	msgMaintenanceRU = "Бот на техническом обслуживании. Попробуйте позже."
	msgMaintenanceEN = "The bot is under maintenance. Please try again later."

	msgBannedForeverRU = "Вы заблокированы навсегда."
	msgBannedForeverEN = "You are banned forever."

	msgBadCallback    = "Кнопка устарела или повреждена."
	msgUsageJoin      = "Использование: /join <код комнаты>"
	msgPackNotFound   = "Такого набора локаций нет."
	msgPackNotOwned   = "У вас нет этого набора локаций. Его можно купить:"
	msgUnknownItem    = "Такого товара нет."
	msgPlayerNotFound = "Игрок не найден."
	msgGenericError   = "Что-то пошло не так. Попробуйте ещё раз."
	msgAdminOnly      = "Команда доступна только администраторам."

	msgUsageBan         = "Использование: /ban <@ник|id> <Nm|Nh|Nd|perm> или ответом: /ban <срок>"
	msgUsageUnban       = "Использование: /unban <@ник|id>"
	msgUsageLog         = "Использование: /log <код комнаты>"
	msgUsageRefund      = "Использование: /refund <номер покупки>"
	msgUsageTestRoom    = "Использование: /testroom bot|me"
	msgUsageMaintenance = "Использование: /maintenance on|off|schedule [минуты]"
	msgBadDuration      = "Неверный срок. Примеры: 30m, 12h, 7d, perm"
	msgNoRooms          = "Активных комнат нет."
	msgEmptyLog         = "В этой комнате ещё нет сообщений."
	msgNoPurchases      = "Покупок нет."
	msgAlreadyRefunded  = "Эта покупка уже возвращена."
	msgAlreadyOwned     = "Этот набор у вас уже есть."
	msgNoBans           = "Заблокированных нет."
	msgPurchaseNotFound = "Покупка не найдена."
	msgMaintenanceOnOK  = "Режим обслуживания включён."
	msgMaintenanceOffOK = "Режим обслуживания выключен."
	msgMaintenanceIdle  = "Режим обслуживания выключен, плановых работ нет."
	msgPackUploadAdmin  = "Загружать наборы локаций могут только администраторы."
	msgPackFileName     = "Файл должен называться <набор>.txt (латиница, цифры, _ и -)."
	msgPackEmpty        = "В файле нет ни одной локации."
	msgPackFetchFailed  = "Не удалось скачать файл."
	msgShopHeader       = "Магазин:"
)

func menu(l locale.Locale) string {
	if l == locale.EN {
		return msgMenuEN
	}
	return msgMenuRU
}

func hint(l locale.Locale) string {
	if l == locale.EN {
		return msgHintEN
	}
	return msgHintRU
}

func maintenanceNotice(l locale.Locale) string {
	if l == locale.EN {
		return msgMaintenanceEN
	}
	return msgMaintenanceRU
}

// banNotice renders the remaining ban time as "Nд Nч Nм" or "Nd Nh Nm".
func banNotice(l locale.Locale, permanent bool, remaining time.Duration) string {
	if permanent {
		if l == locale.EN {
			return msgBannedForeverEN
		}
		return msgBannedForeverRU
	}
	if l == locale.EN {
		return "You are banned. Time left: " + formatRemaining(remaining, l)
	}
	return "Вы заблокированы. Осталось: " + formatRemaining(remaining, l)
}

func formatRemaining(d time.Duration, l locale.Locale) string {
	minutes := int64((d + time.Minute - 1) / time.Minute)
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	mins := minutes % 60

	units := [3]string{"д", "ч", "м"}
	if l == locale.EN {
		units = [3]string{"d", "h", "m"}
	}
	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d%s", days, units[0]))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d%s", hours, units[1]))
	}
	if mins > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d%s", mins, units[2]))
	}
	return strings.Join(parts, " ")
}

func fmtBanned(handle string, permanent bool, until time.Time) string {
	if permanent {
		return fmt.Sprintf("%s заблокирован навсегда.", handle)
	}
	return fmt.Sprintf("%s заблокирован до %s UTC.", handle, until.UTC().Format("02.01.2006 15:04"))
}

func fmtUnbanned(handle string) string {
	return fmt.Sprintf("%s разблокирован.", handle)
}

func fmtPurchased(item string, id int64) string {
	return fmt.Sprintf("Покупка #%d оформлена: %s", id, itemTitle(item))
}

func fmtRefunded(id int64, item string, userID int64) string {
	return fmt.Sprintf("Покупка #%d (%s) пользователя %d возвращена.", id, itemTitle(item), userID)
}

func fmtPackUploaded(name string, count int) string {
	return fmt.Sprintf("Набор %s сохранён: %d локаций.", name, count)
}

func fmtMaintenanceScheduled(at time.Time) string {
	return fmt.Sprintf("Обслуживание начнётся в %s UTC.", at.UTC().Format("15:04"))
}
