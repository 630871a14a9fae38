package logging

import (
	"os"
	"sync"
)

// cappedFileWriter appends to a single log file and starts the file over
// once it would exceed the configured cap. Good enough for a party server;
// anything needing real rotation should ship logs elsewhere.
type cappedFileWriter struct {
	path string
	cap  int64
	mu   sync.Mutex
	f    *os.File
	n    int64
}

func newCappedFileWriter(path string, maxMB int) (*cappedFileWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	f, size, err := appendFile(path)
	if err != nil {
		return nil, err
	}
	return &cappedFileWriter{path: path, cap: int64(maxMB) * 1024 * 1024, f: f, n: size}, nil
}

func (w *cappedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		f, size, err := appendFile(w.path)
		if err != nil {
			return 0, err
		}
		w.f, w.n = f, size
	}
	if w.n+int64(len(p)) > w.cap {
		if err := w.restart(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *cappedFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *cappedFileWriter) restart() error {
	if w.f != nil {
		_ = w.f.Close()
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f, w.n = f, 0
	return nil
}

func appendFile(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
