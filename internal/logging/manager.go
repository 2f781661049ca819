package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты арены, у каждого свой файл логов.
const (
	ComponentServer      = "server"
	ComponentGame        = "game"
	ComponentEvents      = "events"
	ComponentLeaderboard = "leaderboard"
)

// LoggerManager хранит по одному логгеру на компонент.
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	registry     *LoggerManager
	registryOnce sync.Once
)

// GetLoggerManager возвращает общий реестр логгеров процесса.
func GetLoggerManager() *LoggerManager {
	registryOnce.Do(func() {
		registry = &LoggerManager{loggers: map[string]*Logger{}}
	})
	return registry
}

// GetLogger отдаёт логгер компонента, создавая его при первом обращении.
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %q: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger как GetLogger, но при ошибке отдаёт no-op.
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	if l, err := lm.GetLogger(component); err == nil {
		return l
	}
	return NewNopLogger(component)
}

// CloseAll закрывает файлы всех компонентов и очищает реестр.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	var firstErr error
	for name, l := range lm.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close logger %q: %w", name, err)
		}
	}
	lm.loggers = map[string]*Logger{}
	return firstErr
}

// ListComponents возвращает имена компонентов по алфавиту.
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	lm.mu.Unlock()
	sort.Strings(names)
	return names
}

// SetLogLevel меняет уровни уже созданного логгера.
func (lm *LoggerManager) SetLogLevel(component string, console, file LogLevel) error {
	lm.mu.Lock()
	l, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("logger %q not registered", component)
	}
	l.SetLevels(console, file)
	return nil
}

// GetComponentLogger возвращает логгер компонента. До InitDefaultLogger
// возвращает no-op, чтобы симуляция в тестах не создавала файлы.
func GetComponentLogger(component string) *Logger {
	if !initialized() {
		return NewNopLogger(component)
	}
	return GetLoggerManager().MustGetLogger(component)
}

func initialized() bool {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger.rotator != nil
}

func GetServerLogger() *Logger      { return GetComponentLogger(ComponentServer) }
func GetGameLogger() *Logger        { return GetComponentLogger(ComponentGame) }
func GetEventLogger() *Logger       { return GetComponentLogger(ComponentEvents) }
func GetLeaderboardLogger() *Logger { return GetComponentLogger(ComponentLeaderboard) }
