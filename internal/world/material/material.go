package material

import "fmt"

// ID — код материала клетки. Значения стабильны и совпадают с индексами текстур рендера.
type ID uint8

// Константы материалов
const (
	Void          ID = iota // 0 - небо/пустота
	Dirt1                   // 1
	Dirt2                   // 2
	Dirt3                   // 3
	Copper                  // 4 - медная руда
	Rock                    // 5
	Gravel1                 // 6
	Gravel2                 // 7
	Gravel3                 // 8
	RefinedCopper           // 9 - переработанная медь, не падает
	SellBox                 // 10 - приёмник продажи
	Silver                  // 11
	Light                   // 12 - светильник, проходимый
	DrillFrame              // 13 - корпус бура
	DrillBit                // 14 - головка бура
	Grass1                  // 15
	Grass2                  // 16
	Grass3                  // 17

	Count // всегда последний: количество материалов
)

// Флаги свойств материала
type flags uint8

const (
	flagGravity flags = 1 << iota
	flagShovel
	flagGround
	flagPassable
)

type info struct {
	name  string
	flags flags
	price float64
}

var registry = [Count]info{
	Void:          {name: "void", flags: flagPassable},
	Dirt1:         {name: "dirt_1", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Dirt2:         {name: "dirt_2", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Dirt3:         {name: "dirt_3", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Copper:        {name: "copper", flags: flagGravity | flagShovel, price: 0.5},
	Rock:          {name: "rock", flags: flagGround},
	Gravel1:       {name: "gravel_1", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Gravel2:       {name: "gravel_2", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Gravel3:       {name: "gravel_3", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	RefinedCopper: {name: "refined_copper"},
	SellBox:       {name: "sell_box", flags: flagPassable},
	Silver:        {name: "silver", flags: flagGravity | flagShovel, price: 1.0},
	Light:         {name: "light", flags: flagPassable},
	DrillFrame:    {name: "drill_frame"},
	DrillBit:      {name: "drill_bit"},
	Grass1:        {name: "grass_1", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Grass2:        {name: "grass_2", flags: flagGravity | flagShovel | flagGround, price: 0.01},
	Grass3:        {name: "grass_3", flags: flagGravity | flagShovel | flagGround, price: 0.01},
}

// IsValid проверяет, входит ли код в закрытое перечисление
func IsValid(id ID) bool {
	return id < Count
}

func (id ID) has(f flags) bool {
	if !IsValid(id) {
		return false
	}
	return registry[id].flags&f != 0
}

// IsGravityAffected — рыхлый материал, который падает без опоры
func IsGravityAffected(id ID) bool { return id.has(flagGravity) }

// IsShovelable — материал, который можно выкопать лопатой
func IsShovelable(id ID) bool { return id.has(flagShovel) }

// IsGround — природный твёрдый грунт, в котором растут рудные жилы
func IsGround(id ID) bool { return id.has(flagGround) }

// IsSolid — материал, непроходимый для сущностей
func IsSolid(id ID) bool { return IsValid(id) && !id.has(flagPassable) }

// IsOpen — клетка, которую можно заполнить из инвентаря
func IsOpen(id ID) bool { return id == Void || id == Light }

// IsRock — камень, который кирка превращает в гравий
func IsRock(id ID) bool { return id == Rock }

// StopsDrag — клетка, на которой останавливается протягивание колонны за падающим зерном.
// Всё остальное над зерном (включая приёмник и бур) сдвигается вниз вместе с ним.
func StopsDrag(id ID) bool {
	switch id {
	case Void, RefinedCopper, Rock, Light:
		return true
	}
	return !IsValid(id)
}

// StopsVacuum — клетка, на которой останавливается втягивание колонны в приёмник.
// Остальное втягивается, материал без цены уходит бесплатно.
func StopsVacuum(id ID) bool {
	return id == Void || id == RefinedCopper || !IsValid(id)
}

// Price возвращает выручку за одну клетку, упавшую в приёмник продажи
func Price(id ID) float64 {
	if !IsValid(id) {
		return 0
	}
	return registry[id].price
}

// Name возвращает имя материала
func (id ID) Name() string {
	if !IsValid(id) {
		return fmt.Sprintf("unknown(%d)", uint8(id))
	}
	return registry[id].name
}

// String реализует fmt.Stringer
func (id ID) String() string { return id.Name() }

// Parse возвращает материал по имени
func Parse(name string) (ID, bool) {
	for i := ID(0); i < Count; i++ {
		if registry[i].name == name {
			return i, true
		}
	}
	return Void, false
}

// Dirt, Grass и Gravel — варианты текстур одного семейства
var (
	Dirt   = [3]ID{Dirt1, Dirt2, Dirt3}
	Grass  = [3]ID{Grass1, Grass2, Grass3}
	Gravel = [3]ID{Gravel1, Gravel2, Gravel3}
)
