package utils

import (
	"io"
	"sync"
)

// FlushingWriter serializes writes and flushes the wrapped writer after each one when it supports flushing,
// so progress marks appear as soon as they are written.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

type flusher interface {
	Flush() error
}

// NewFlushingWriter wraps writer. A nil writer yields io.Discard; an existing FlushingWriter is returned as is.
func NewFlushingWriter(writer io.Writer) io.Writer {
	switch typedWriter := writer.(type) {
	case nil:
		return io.Discard
	case *FlushingWriter:
		return typedWriter
	default:
		return &FlushingWriter{writer: writer}
	}
}

// Write delegates to the underlying writer and flushes it when possible.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushableWriter, implementsFlush := flushingWriter.writer.(flusher); implementsFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}
