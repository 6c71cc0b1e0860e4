package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/dig-world/internal/app"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world"
	"github.com/annel0/dig-world/internal/world/material"
)

// ChunkResponse — содержимое чанка: коды материалов построчно, строка 0 — верх
type ChunkResponse struct {
	Coords  vec.Vec2           `json:"coords"`
	Origin  vec.Vec2           `json:"origin"` // глобальные координаты клетки (0,0)
	Size    int                `json:"size"`
	Cells   []int              `json:"cells"`
	Surface [vec.ChunkSize]int `json:"surface"`
	Changed bool               `json:"changed"`
	Legend  map[int]string     `json:"legend"`
}

// CellResponse — одна клетка мира
type CellResponse struct {
	Position vec.Vec2 `json:"position"`
	Code     int      `json:"code"`
	Material string   `json:"material"`
	Solid    bool     `json:"solid"`
}

// SetCellRequest — запись материала по имени
type SetCellRequest struct {
	Material string `json:"material" binding:"required"`
}

// CreateToolRequest — запрос на выдачу инструмента
type CreateToolRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// UseToolRequest — применение инструмента в точке
type UseToolRequest struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Primary bool `json:"primary"`
}

// UseToolResponse — итог применения
type UseToolResponse struct {
	Removed   []string `json:"removed"`
	Placed    int      `json:"placed"`
	Crushed   int      `json:"crushed"`
	Inventory int      `json:"inventory"`
}

// SellBoxRequest — установка приёмника продажи; без Y ставится на поверхность
type SellBoxRequest struct {
	X int  `json:"x"`
	Y *int `json:"y"`
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	stats := make(map[string]interface{})
	stats["world"] = rs.app.World.Stats()
	stats["tools"] = len(rs.app.Tools.IDs())

	memoryMB, _ := rs.metrics.GetProcessMemoryMB()
	cpuPercent, _ := rs.metrics.GetCPUUsage()
	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}
	stats["runtime"] = rs.metrics.GetRuntimeStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (rs *RestServer) handleMoney(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"money": rs.app.World.CurrentMoney()})
}

func (rs *RestServer) handleGetChunk(c *gin.Context) {
	coords, ok := parseVec(c, "x", "y")
	if !ok {
		return
	}

	chunk := rs.app.World.GetOrGenerateChunk(coords)
	snapshot := chunk.Snapshot()
	resp := ChunkResponse{
		Coords:  chunk.Coords,
		Origin:  chunk.GlobalOrigin(),
		Size:    vec.ChunkSize,
		Cells:   make([]int, len(snapshot)),
		Changed: chunk.HasChanges(),
		Legend:  make(map[int]string),
	}
	for i, id := range snapshot {
		resp.Cells[i] = int(id)
		resp.Legend[int(id)] = id.String()
	}
	chunk.Mu.RLock()
	resp.Surface = chunk.Surface
	chunk.Mu.RUnlock()

	c.JSON(http.StatusOK, resp)
}

func (rs *RestServer) handleSurface(c *gin.Context) {
	x, err := strconv.Atoi(c.Param("x"))
	if err != nil {
		badRequest(c, "x должен быть целым числом")
		return
	}
	c.JSON(http.StatusOK, gin.H{"x": x, "y": rs.app.World.SurfaceAt(x)})
}

func (rs *RestServer) handleGetCell(c *gin.Context) {
	pos, ok := parseVec(c, "x", "y")
	if !ok {
		return
	}

	id := rs.app.World.CellAt(pos)
	c.JSON(http.StatusOK, CellResponse{
		Position: pos,
		Code:     int(id),
		Material: id.String(),
		Solid:    material.IsSolid(id),
	})
}

func (rs *RestServer) handleSetCell(c *gin.Context) {
	pos, ok := parseVec(c, "x", "y")
	if !ok {
		return
	}

	var req SetCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	id, ok := material.Parse(req.Material)
	if !ok {
		badRequest(c, fmt.Sprintf("Неизвестный материал: %s", req.Material))
		return
	}

	rs.app.World.SetCell(pos, id)
	c.JSON(http.StatusOK, CellResponse{
		Position: pos,
		Code:     int(id),
		Material: id.String(),
		Solid:    material.IsSolid(id),
	})
}

func (rs *RestServer) handleSellBox(c *gin.Context) {
	var req SellBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}

	var pos vec.Vec2
	if req.Y == nil {
		pos = rs.app.PlaceSellBox(req.X)
	} else {
		pos = vec.Vec2{X: req.X, Y: *req.Y}
		rs.app.World.SetCell(pos, material.SellBox)
	}

	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Приёмник продажи установлен",
		Data:    pos,
	})
}

func (rs *RestServer) handleListTools(c *gin.Context) {
	views := make([]app.ToolView, 0)
	for _, id := range rs.app.Tools.IDs() {
		if v, err := rs.app.Tools.View(id); err == nil {
			views = append(views, v)
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Инструменты", Data: views})
}

func (rs *RestServer) handleCreateTool(c *gin.Context) {
	var req CreateToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}

	kind, ok := world.ParseToolKind(req.Kind)
	if !ok {
		badRequest(c, fmt.Sprintf("Неизвестный инструмент '%s'", req.Kind))
		return
	}

	tool := rs.app.Tools.Create(kind)
	view, _ := rs.app.Tools.View(tool.ID)
	rs.logger.Info("Выдан инструмент %s (%s)", tool.ID, kind)
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Инструмент создан",
		Data:    view,
	})
}

func (rs *RestServer) handleGetTool(c *gin.Context) {
	view, err := rs.app.Tools.View(c.Param("id"))
	if err != nil {
		rs.toolError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Инструмент", Data: view})
}

func (rs *RestServer) handleUseTool(c *gin.Context) {
	var req UseToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}

	res, err := rs.app.Tools.Use(c.Param("id"), vec.Vec2{X: req.X, Y: req.Y}, req.Primary)
	if err != nil {
		rs.toolError(c, err)
		return
	}

	removed := make([]string, len(res.Removed))
	for i, id := range res.Removed {
		removed[i] = id.String()
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Инструмент применён",
		Data: UseToolResponse{
			Removed:   removed,
			Placed:    res.Placed,
			Crushed:   res.Crushed,
			Inventory: res.Inventory,
		},
	})
}

func (rs *RestServer) toolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrToolNotFound):
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: err.Error()})
	case errors.Is(err, world.ErrCorruptMaterial):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

// parseVec читает пару целочисленных параметров пути
func parseVec(c *gin.Context, xName, yName string) (vec.Vec2, bool) {
	x, errX := strconv.Atoi(c.Param(xName))
	y, errY := strconv.Atoi(c.Param(yName))
	if errX != nil || errY != nil {
		badRequest(c, "Координаты должны быть целыми числами")
		return vec.Vec2{}, false
	}
	return vec.Vec2{X: x, Y: y}, true
}
