package credentials

import (
	"io"
	"sync"
)

const (
	progressMarkConstant       = "."
	progressTerminatorConstant = "\n"
)

// DotProgressReporter prints one mark per processed row and a newline once loading completes.
type DotProgressReporter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewDotProgressReporter writes progress marks to writer. A nil writer discards them.
func NewDotProgressReporter(writer io.Writer) *DotProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &DotProgressReporter{writer: writer}
}

// RowProcessed emits a single progress mark.
func (reporter *DotProgressReporter) RowProcessed() {
	reporter.write(progressMarkConstant)
}

// Completed terminates the progress line.
func (reporter *DotProgressReporter) Completed() {
	reporter.write(progressTerminatorConstant)
}

func (reporter *DotProgressReporter) write(text string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	_, _ = io.WriteString(reporter.writer, text)
}
