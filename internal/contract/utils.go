package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/mergecheck/schema"
)

// Color variables for console output.
var (
	FailureColor  = color.New(color.FgRed, color.Bold)    // blocking
	WarningColor  = color.New(color.FgYellow, color.Bold) // visible, non-blocking
	CheckingColor = color.New(color.FgMagenta)            // still converging
	SuccessColor  = color.New(color.FgGreen)
	InactiveColor = color.New(color.FgCyan)
)

// GetPlainLabel returns the upper-case label of a check status. This is the core
// logic used for CSV, JSON and table printing.
func GetPlainLabel(status schema.CheckStatus) string {
	return strings.ToUpper(string(status))
}

// GetColorLabel returns a colored status label for console output (table).
func GetColorLabel(status schema.CheckStatus) string {
	text := GetPlainLabel(status)

	switch status {
	case schema.StatusFailure:
		return FailureColor.Sprint(text)
	case schema.StatusWarning:
		return WarningColor.Sprint(text)
	case schema.StatusChecking:
		return CheckingColor.Sprint(text)
	case schema.StatusSuccess:
		return SuccessColor.Sprint(text)
	default:
		return InactiveColor.Sprint(text)
	}
}

// GetVerdictLabel returns the verdict label, colored when useColors is set.
func GetVerdictLabel(verdict schema.Verdict, useColors bool) string {
	text := strings.ToUpper(string(verdict))
	if !useColors {
		return text
	}
	switch verdict {
	case schema.VerdictBlocked:
		return FailureColor.Sprint(text)
	case schema.VerdictPending:
		return CheckingColor.Sprint(text)
	default:
		return SuccessColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the result cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".mergecheck_cache.db"
	}
	return filepath.Join(homeDir, ".mergecheck_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for evaluation history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".mergecheck_history.db"
	}
	return filepath.Join(homeDir, ".mergecheck_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
