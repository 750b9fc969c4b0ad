package main

import (
	"fmt"

	"github.com/Ning0612/unfold/internal/logger"
	"github.com/Ning0612/unfold/internal/progress"
)

// newLogReporter logs each finished file with the running totals
func newLogReporter() progress.Reporter {
	return progress.NewCallbackReporter(func(u progress.Update) {
		switch u.Type {
		case progress.UpdateComplete:
			logger.Get().Info("copied",
				"file", u.CurrentFile,
				"size", progress.FormatBytes(u.CurrentTotal),
				"files", fmt.Sprintf("%d/%d", u.FilesCompleted, u.FilesTotal),
				"done", fmt.Sprintf("%s/%s", progress.FormatBytes(u.BytesCompleted), progress.FormatBytes(u.BytesTotal)),
				"speed", progress.FormatSpeed(u.BytesPerSecond),
			)
		case progress.UpdateFailed:
			logger.Get().Warn("copy failed", "file", u.CurrentFile, "error", u.Err)
		}
	})
}
