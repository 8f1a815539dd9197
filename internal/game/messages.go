package game

import (
	"fmt"
	"strings"
)

const (
	msgRoomNotFound      = "Комната не найдена."
	msgNotInRoom         = "Вы не находитесь в комнате."
	msgAlreadyInRoom     = "Вы уже в комнате. Сначала покиньте её: /leave"
	msgAlreadyQueued     = "Вы уже ищете игру."
	msgNotQueued         = "Вы не ищете игру."
	msgNotOwner          = "Это может сделать только владелец комнаты."
	msgGameInProgress    = "Игра уже идёт."
	msgGameNotRunning    = "Сейчас игра не идёт."
	msgTooFewPlayers     = "Для начала нужно минимум 3 игрока."
	msgRoomFull          = "Комната заполнена."
	msgVoteInProgress    = "Голосование уже идёт."
	msgNoVoteInProgress  = "Сейчас нет голосования."
	msgEarlyVoteUsed     = "Вы уже начинали досрочное голосование в этом раунде."
	msgAlreadyVoted      = "Вы уже проголосовали."
	msgUnknownTarget     = "Такого игрока нет в комнате."
	msgNotSpy            = "Угадывать локацию может только шпион."
	msgNoGuessPending    = "Сейчас нельзя угадывать локацию."
	msgChatClosed        = "Во время голосования чат закрыт."
	msgTooLong           = "Сообщение длиннее 120 символов и не было отправлено."
	msgPrivateRoomOnly   = "Это доступно только в приватной комнате."
	msgMaintenanceActive = "Бот на техническом обслуживании. Попробуйте позже."
	msgGenericError      = "Что-то пошло не так. Попробуйте ещё раз."

	msgTextOnly     = "Можно отправлять только текстовые сообщения."
	msgMuted        = "Слишком много сообщений! 5 секунд ваши сообщения никто не видит."
	msgVisibleAgain = "Ваши сообщения снова видны."

	msgYouLeft       = "Вы покинули комнату."
	msgOwnerLeft     = "Владелец покинул комнату, комната закрыта."
	msgRoomClosed    = "Комната закрыта."
	msgLastMinute    = "Осталась одна минута!"
	msgRoundOver     = "Время вышло! Пора решить, кто шпион."
	msgVoteAccepted  = "Голос принят."
	msgSuspectPrompt = "Кто шпион? Выберите игрока. На голосование 30 секунд."
	msgSuspectHurry  = "Осталось 10 секунд на голосование!"
	msgGuessPrompt   = "Вас вычислили! Последний шанс: угадайте локацию. У вас 30 секунд."
	msgGuessWaiting  = "Шпион вычислен! Ждём, угадает ли он локацию..."
	msgGuessHurry    = "Осталось 10 секунд, чтобы назвать локацию!"
	msgPackCleared   = "Набор локаций сброшен, используются базовые локации."

	msgQueueTimeout    = "Не удалось найти игру за отведённое время. Попробуйте ещё раз: /find"
	msgSearchCancelled = "Поиск отменён."

	msgMaintenanceOn        = "Начались технические работы. Все комнаты закрыты, текущие игры прерваны."
	msgMaintenanceOff       = "Технические работы завершены."
	msgMaintenanceScheduled = "Технические работы запланированы."

	msgInterrupted = "Раунд прерван перезапуском сервера."

	labelFor     = "За"
	labelAgainst = "Против"
)

func fmtRoomCreated(token string) string {
	return fmt.Sprintf("Комната %s создана. Пригласите друзей командой: /join %s\nКогда соберётся от 3 игроков, начните игру: /begin", token, token)
}

func fmtYouJoined(token string, players []Participant) string {
	handles := make([]string, 0, len(players))
	for _, p := range players {
		handles = append(handles, p.Handle())
	}
	return fmt.Sprintf("Вы в комнате %s. Игроки (%d): %s", token, len(players), strings.Join(handles, ", "))
}

func fmtJoined(p Participant) string {
	return fmt.Sprintf("%s присоединился к комнате.", p.Handle())
}

func fmtLeft(p Participant) string {
	return fmt.Sprintf("%s покинул комнату.", p.Handle())
}

func fmtNewOwner(p Participant) string {
	return fmt.Sprintf("Новый владелец комнаты: %s", p.Handle())
}

func fmtSpyReveal(callsign string) string {
	return fmt.Sprintf("Вы ШПИОН!\nВаш позывной: %s\nВыясните локацию и не выдайте себя.", callsign)
}

func fmtCivilianReveal(location, callsign string) string {
	return fmt.Sprintf("Локация: %s\nВаш позывной: %s\nВычислите шпиона!", location, callsign)
}

func fmtRoundInfo(total int, callsigns []string) string {
	return fmt.Sprintf("Игроков: %d\nПозывные в раунде: %s", total, strings.Join(callsigns, ", "))
}

func fmtCountdown(n int) string {
	return fmt.Sprintf("%d...", n)
}

func fmtEarlyVotePrompt(initiator string, seconds int) string {
	return fmt.Sprintf("%s предлагает закончить обсуждение досрочно и перейти к голосованию. У вас %d секунд.", initiator, seconds)
}

func fmtEarlyVotePassed(votesFor, votesAgainst int) string {
	return fmt.Sprintf("Досрочное голосование принято (%d за, %d против). Переходим к выбору шпиона!", votesFor, votesAgainst)
}

func fmtEarlyVoteFailed(votesFor, votesAgainst int) string {
	return fmt.Sprintf("Досрочное голосование не прошло (%d за, %d против). Игра продолжается.", votesFor, votesAgainst)
}

func fmtQueued(size int) string {
	return fmt.Sprintf("Ищем игру... Игроков в очереди: %d", size)
}

func fmtQueueSize(size int) string {
	return fmt.Sprintf("Игроков в очереди: %d", size)
}

func fmtGameFound(token string, players int) string {
	return fmt.Sprintf("Игра найдена! Комната %s, игроков: %d.", token, players)
}

func fmtMaintenanceWarning(minutes int) string {
	return fmt.Sprintf("Через %d мин. начнутся технические работы. Текущие игры будут прерваны.", minutes)
}

func fmtPackSet(pack string) string {
	return fmt.Sprintf("Набор локаций: %s", pack)
}

func fmtTestRoom(token string, spyIsOwner bool) string {
	who := "бот"
	if spyIsOwner {
		who = "вы"
	}
	return fmt.Sprintf("Тестовая комната %s создана. Шпион: %s.", token, who)
}
