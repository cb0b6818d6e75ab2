package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes console formatted logs to a size-rotated file.
type FileAppender struct {
	ConsoleAppender
	file *lumberjack.Logger
}

// NewFileAppender creates an appender that writes to filename, rotating it once it grows past
// maxSizeMB megabytes and keeping at most maxBackups compressed old files.
func NewFileAppender(filename string, maxSizeMB, maxBackups int) *FileAppender {
	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(file), file: file}
}

// Close closes the current log file.
func (appender *FileAppender) Close() error {
	return appender.file.Close()
}
