package game

// BaseLocations is the location set used when a room has no content pack.
var BaseLocations = []string{
	"Банк",
	"Пляж",
	"Больница",
	"Школа",
	"Самолёт",
	"Подводная лодка",
	"Космическая станция",
	"Казино",
	"Цирк",
	"Ресторан",
	"Театр",
	"Аэропорт",
	"Полицейский участок",
	"Супермаркет",
	"Киностудия",
	"Пиратский корабль",
	"Военная база",
	"Поезд",
	"Посольство",
	"Спа-салон",
	"Университет",
	"Автосервис",
	"Ночной клуб",
	"Зоопарк",
	"Музей",
	"Стадион",
	"Библиотека",
	"Полярная станция",
}

// Callsigns is the global pool shuffled at every round start.
var Callsigns = []string{
	"Альфа",
	"Браво",
	"Чарли",
	"Дельта",
	"Эхо",
	"Фокстрот",
	"Гольф",
	"Икс-рей",
	"Индиго",
	"Джульетта",
	"Кило",
	"Лима",
	"Майк",
	"Новембер",
	"Оскар",
	"Папа",
	"Квебек",
	"Ромео",
	"Сьерра",
	"Танго",
	"Юниформ",
	"Виктор",
	"Виски",
	"Янки",
	"Зулу",
}
