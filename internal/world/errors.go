package world

import (
	"errors"
	"fmt"

	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world/material"
)

// ErrCorruptMaterial — в клетке найден код вне перечисления материалов.
// Перечисление закрыто, поэтому такой код означает повреждённый чанк.
var ErrCorruptMaterial = errors.New("повреждённый код материала")

// CorruptCellError указывает клетку с недопустимым кодом
type CorruptCellError struct {
	Pos  vec.Vec2
	Code material.ID
}

func (e *CorruptCellError) Error() string {
	return fmt.Sprintf("клетка (%d,%d): код %d: %v", e.Pos.X, e.Pos.Y, uint8(e.Code), ErrCorruptMaterial)
}

// Unwrap позволяет сравнивать через errors.Is(err, ErrCorruptMaterial)
func (e *CorruptCellError) Unwrap() error { return ErrCorruptMaterial }
