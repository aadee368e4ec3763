package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	debugMu     sync.Mutex
	debugOnce   sync.Once
	debugFile   *os.File
	debugLogger *log.Logger
	enableDebug bool

	// Order matters: specific patterns run before generic ones.
	sensitivePatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		// session tokens are JWTs
		{regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED-JWT]"},
		{regexp.MustCompile(`(?i)(authorization[=:\s]+['"]?)(Basic|Bearer)\s+[a-zA-Z0-9\-_\.=]+`), "${1}${2} [REDACTED]"},
		{regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_\.]+`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(api[_-]?key[=:\s]+['"]?)[a-zA-Z0-9\-_]{16,}`), "${1}[REDACTED]"},
		// "password":"..." in login and register bodies
		{regexp.MustCompile(`(?i)("password"\s*:\s*")[^"]*`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(password[=:\s]+['"]?)[^\s&'"]+`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)("token"\s*:\s*")[^"]*`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(token[=:\s]+['"]?)[a-zA-Z0-9\-_\.]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(sid[=:\s]+['"]?)[a-zA-Z0-9\-_]{16,}`), "${1}[REDACTED]"},
		{regexp.MustCompile(`(?i)(cookie[=:\s]+['"]?)[^;\n]+`), "${1}[REDACTED]"},
	}
)

// InitDebugLogger opens the shared file-backed logger. An empty path means
// debug.log in the data directory. Only the first call opens a file.
func InitDebugLogger(path string, debug bool) error {
	debugMu.Lock()
	defer debugMu.Unlock()
	enableDebug = debug

	var initErr error
	debugOnce.Do(func() {
		if path == "" {
			path = DefaultLogPath()
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				initErr = err
				return
			}
		}
		if debug {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			fmt.Fprintf(os.Stderr, "[DEBUG] Logging to: %s\n", abs)
		}

		// LogToFile also routes Bubble Tea's own logging to the file
		f, err := tea.LogToFile(path, "debug")
		if err != nil {
			initErr = err
			return
		}
		debugFile = f
		debugLogger = log.New(io.MultiWriter(f), "", log.LstdFlags)
	})
	return initErr
}

// DefaultLogPath is debug.log in the data directory, or the working
// directory when the data directory cannot be determined.
func DefaultLogPath() string {
	if dir, err := GetDataDir(); err == nil {
		return filepath.Join(dir, "debug.log")
	}
	return filepath.Join(GetEffectiveCWD(), "debug.log")
}

// DebugEnabled reports whether --debug is on.
func DebugEnabled() bool {
	debugMu.Lock()
	defer debugMu.Unlock()
	return enableDebug
}

// CloseDebugLogger closes the underlying debug log file if it was opened.
func CloseDebugLogger() {
	debugMu.Lock()
	defer debugMu.Unlock()
	if debugFile != nil {
		_ = debugFile.Sync()
		_ = debugFile.Close()
	}
}

// ResetDebugLoggerForTesting lets tests reopen the logger at a new path.
func ResetDebugLoggerForTesting() {
	CloseDebugLogger()
	debugMu.Lock()
	defer debugMu.Unlock()
	debugOnce = sync.Once{}
	debugFile = nil
	debugLogger = nil
	enableDebug = false
}

func sanitizeLogMessage(msg string) string {
	sanitized := msg
	for _, sp := range sensitivePatterns {
		sanitized = sp.pattern.ReplaceAllString(sanitized, sp.replacement)
	}
	return sanitized
}

// LogDebug writes a sanitized line to the debug log, and to stderr (or the
// running panel) when --debug is on.
func LogDebug(msg string) {
	debugMu.Lock()
	logger, debug := debugLogger, enableDebug
	debugMu.Unlock()

	if logger == nil {
		if err := InitDebugLogger("", debug); err != nil {
			OutputError("failed to initialize debug logger: %v\n", err)
		}
		debugMu.Lock()
		logger = debugLogger
		debugMu.Unlock()
	}
	if logger == nil {
		return
	}

	sanitized := sanitizeLogMessage(msg)
	logger.Println(sanitized)
	if debug {
		sendMessage(DebugMessage, "%s\n", sanitized)
	}
}

// Logf adapts LogDebug to the printf-style hooks of the internal packages.
func Logf(format string, args ...any) {
	LogDebug(fmt.Sprintf(format, args...))
}
