package vec

// ChunkSize — длина стороны чанка в клетках
const ChunkSize = 32

// Vec2 представляет 2D координаты. Ось Y направлена вверх.
type Vec2 struct {
	X, Y int
}

// floorDiv делит с округлением к минус бесконечности
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ChunkOf возвращает координату чанка для глобальной координаты (деление с округлением вниз)
func ChunkOf(g int) int {
	return floorDiv(g, ChunkSize)
}

// LocalOf возвращает неотрицательный остаток глобальной координаты по модулю ChunkSize
func LocalOf(g int) int {
	m := g % ChunkSize
	if m < 0 {
		m += ChunkSize
	}
	return m
}

// RowOf возвращает номер строки внутри чанка. Строка 0 — верх чанка.
func RowOf(gy int) int {
	return ChunkSize - 1 - LocalOf(gy)
}

// GlobalX восстанавливает глобальный X по чанку и колонке
func GlobalX(chunkX, col int) int {
	return chunkX*ChunkSize + col
}

// GlobalY восстанавливает глобальный Y по чанку и строке.
// Внутри чанка Y убывает с ростом строки, соседние чанки стыкуются без зазоров.
func GlobalY(chunkY, row int) int {
	return chunkY*ChunkSize + (ChunkSize - 1 - row)
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: ChunkOf(v.X), Y: ChunkOf(v.Y)}
}

// LocalInChunk возвращает локальные координаты внутри чанка (X — колонка, Y — строка)
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: LocalOf(v.X), Y: RowOf(v.Y)}
}

// FromChunkLocal собирает глобальные координаты из координат чанка и локальной позиции
func FromChunkLocal(chunk, local Vec2) Vec2 {
	return Vec2{X: GlobalX(chunk.X, local.X), Y: GlobalY(chunk.Y, local.Y)}
}

// Index возвращает индекс клетки в плотном массиве чанка (row-major)
func (v Vec2) Index() int {
	return v.Y*ChunkSize + v.X
}

// Up возвращает клетку выше
func (v Vec2) Up() Vec2 { return Vec2{X: v.X, Y: v.Y + 1} }

// Down возвращает клетку ниже
func (v Vec2) Down() Vec2 { return Vec2{X: v.X, Y: v.Y - 1} }

// ChebyshevTo возвращает расстояние Чебышёва (используется для радиуса загрузки чанков)
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
