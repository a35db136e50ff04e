// Package logger provides component-tagged leveled logging with an
// optional append-only JSON lines file sink.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
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

var (
	mu      sync.Mutex
	level   = INFO
	logFile *os.File
)

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetLogFile opens path for appending and mirrors every record to it as a
// JSON line. Parent directories are created as needed.
func SetLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	return nil
}

// CloseLogFile closes the file sink if one is open.
func CloseLogFile() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func DebugC(component, msg string) { write(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { write(INFO, component, msg, nil) }
func WarnC(component, msg string)  { write(WARN, component, msg, nil) }
func ErrorC(component, msg string) { write(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { write(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { write(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { write(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { write(ERROR, component, msg, fields) }

func write(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()

	if l < level {
		return
	}

	now := time.Now()
	line := fmt.Sprintf("%s [%s] [%s] %s", now.Format("2006-01-02 15:04:05"), l, component, msg)
	if len(fields) > 0 {
		if extra, err := json.Marshal(fields); err == nil {
			line += " " + string(extra)
		}
	}
	fmt.Fprintln(os.Stderr, line)

	if logFile == nil {
		return
	}
	record := map[string]any{
		"ts":        now.Format(time.RFC3339),
		"level":     l.String(),
		"component": component,
		"message":   msg,
	}
	for k, v := range fields {
		record[k] = v
	}
	if data, err := json.Marshal(record); err == nil {
		logFile.Write(append(data, '\n'))
	}
}
