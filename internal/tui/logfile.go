package tui

import (
	"os"
	"path/filepath"
)

// LogFileName is the rotating log kept in the git directory
const LogFileName = "cascade.log"

// LogFilePath returns CASCADE_LOG_FILE when set, otherwise the log file
// inside gitDir. An empty gitDir with no override disables file logging.
func LogFilePath(gitDir string) string {
	if customPath := os.Getenv("CASCADE_LOG_FILE"); customPath != "" {
		return customPath
	}
	if gitDir == "" {
		return ""
	}
	return filepath.Join(gitDir, LogFileName)
}
