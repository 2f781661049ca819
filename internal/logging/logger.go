package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// zapLevel у zap нет TRACE, он сводится к Debug
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE, DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Logger логгер компонента: консоль + файл с ротацией
type Logger struct {
	component string
	sugar     *zap.SugaredLogger
	rotator   *lumberjack.Logger

	consoleLevel zap.AtomicLevel
	fileLevel    zap.AtomicLevel
}

// LogDir каталог для файлов логов
var LogDir = "logs"

var (
	defaultMu     sync.RWMutex
	defaultLogger = &Logger{component: "nop", sugar: zap.NewNop().Sugar()}
)

// NewLogger создаёт логгер компонента, пишущий в logs/<component>.log (с ротацией)
// и в stdout начиная с INFO.
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll(LogDir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", LogDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(LogDir, component+".log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	consoleLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	fileLevel := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(rotator), fileLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), consoleLevel),
	)

	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(component)

	return &Logger{
		component:    component,
		sugar:        base.Sugar(),
		rotator:      rotator,
		consoleLevel: consoleLevel,
		fileLevel:    fileLevel,
	}, nil
}

// NewNopLogger логгер, который ничего не пишет (тесты, библиотечное использование)
func NewNopLogger(component string) *Logger {
	return &Logger{component: component, sugar: zap.NewNop().Sugar()}
}

// SetLevels меняет минимальные уровни консоли и файла на лету
func (l *Logger) SetLevels(console, file LogLevel) {
	if l.rotator == nil {
		return
	}
	l.consoleLevel.SetLevel(console.zapLevel())
	l.fileLevel.SetLevel(file.zapLevel())
}

// Close сбрасывает буферы и закрывает файл
func (l *Logger) Close() error {
	_ = l.sugar.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func (l *Logger) Trace(format string, args ...interface{}) { l.sugar.Debugf("[TRACE] "+format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With возвращает логгер с постоянными полями (например run_id)
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	cp := *l
	cp.sugar = l.sugar.With(keysAndValues...)
	return &cp
}

// InitDefaultLogger инициализирует логгер по умолчанию для пакетных функций
func InitDefaultLogger(component string) error {
	l, err := GetLoggerManager().GetLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает все логгеры
func CloseDefaultLogger() {
	_ = GetLoggerManager().CloseAll()
	defaultMu.Lock()
	defaultLogger = NewNopLogger("nop")
	defaultMu.Unlock()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }
