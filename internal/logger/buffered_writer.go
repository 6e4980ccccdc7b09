package logger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	// logBufferSize batches JSON records before they reach the file
	logBufferSize = 16 * 1024

	// logFlushInterval bounds how long a record may sit in the buffer
	logFlushInterval = 2 * time.Second

	// LogFilePermissions is the file mode used for log files
	LogFilePermissions = 0o600
)

// bufferedFile is a mutex-guarded bufio writer over an append-only log file
// with a background flusher.
type bufferedFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// openBufferedFile opens path for appending and starts the periodic flusher.
func openBufferedFile(path string, interval time.Duration) (*bufferedFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	if interval <= 0 {
		interval = logFlushInterval
	}

	bf := &bufferedFile{
		file:   file,
		writer: bufio.NewWriterSize(file, logBufferSize),
		stop:   make(chan struct{}),
	}

	bf.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-bf.stop:
				return
			case <-ticker.C:
				_ = bf.Flush()
			}
		}
	})

	return bf, nil
}

// Write implements io.Writer.
func (bf *bufferedFile) Write(p []byte) (int, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed {
		return 0, errors.New("log file is closed")
	}
	return bf.writer.Write(p)
}

// Flush pushes buffered records to the OS without fsync.
func (bf *bufferedFile) Flush() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed {
		return nil
	}
	return bf.writer.Flush()
}

// Close stops the flusher, syncs and closes the file. Safe to call twice.
func (bf *bufferedFile) Close() error {
	bf.mu.Lock()
	if bf.closed {
		bf.mu.Unlock()
		return nil
	}
	bf.closed = true
	bf.mu.Unlock()

	close(bf.stop)
	bf.wg.Wait()

	var errs []error
	if err := bf.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush log buffer: %w", err))
	}
	if err := bf.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync log file: %w", err))
	}
	if err := bf.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	return errors.Join(errs...)
}
