package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger is a small leveled logger that writes key-value pairs to stdout.
type Logger struct {
	l *log.Logger
}

// NewLogger creates a new Logger.
func NewLogger() *Logger {
	return &Logger{
		l: log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *Logger) write(level, msg string, args []any) {
	out := level + ": " + msg
	for i := 0; i+1 < len(args); i += 2 {
		out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		out += fmt.Sprintf(" %v", args[len(args)-1])
	}
	l.l.Println(out)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.write("DEBUG", msg, args) }

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) { l.write("INFO", msg, args) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.write("WARN", msg, args) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.write("ERROR", msg, args) }
