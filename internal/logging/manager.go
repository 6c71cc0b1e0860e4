package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты, у которых есть собственный логгер
const (
	ComponentWorld   = "world"
	ComponentStorage = "storage"
	ComponentAPI     = "api"
)

// LoggerManager хранит логгеры компонентов и общий уровень консоли для них
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	level   LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
			level:   INFO,
		}
	})
	return globalManager
}

// Get возвращает логгер компонента. Новый логгер получает текущий уровень менеджера.
func (lm *LoggerManager) Get(component string) *Logger {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if exists {
		return logger
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger
	}
	logger = NewLoggerWithWriter(component, defaultLogger.consoleLogger.Writer())
	logger.minConsoleLevel = lm.level
	lm.loggers[component] = logger
	return logger
}

// SetLevel меняет уровень консоли всех логгеров компонентов, включая будущие
func (lm *LoggerManager) SetLevel(level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.level = level
	for _, logger := range lm.loggers {
		logger.SetLevel(level)
	}
}

// SetComponentLevel меняет уровень одного уже созданного логгера
func (lm *LoggerManager) SetComponentLevel(component string, level LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	logger.SetLevel(level)
	return nil
}

// Components возвращает отсортированные имена компонентов
func (lm *LoggerManager) Components() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает логгеры компонентов и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// SetLevel применяет уровень из конфигурации к глобальному логгеру и ко всем компонентам
func SetLevel(level LogLevel) {
	SetDefaultLevel(level)
	GetLoggerManager().SetLevel(level)
}

func GetWorldLogger() *Logger   { return GetLoggerManager().Get(ComponentWorld) }
func GetStorageLogger() *Logger { return GetLoggerManager().Get(ComponentStorage) }
func GetAPILogger() *Logger     { return GetLoggerManager().Get(ComponentAPI) }
