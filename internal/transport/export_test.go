package transport

import "os"

// Test seams for fault injection.

func (t *Transport) SetOpenFileForTest(fn func(string) (*os.File, error)) {
	prev := t.openFile
	t.openFile = func(path string) (*os.File, error) {
		file, err := fn(path)
		if err == nil && file == nil {
			return prev(path)
		}
		return file, err
	}
}

func (t *Transport) SetStatFileForTest(fn func(string) (os.FileInfo, error)) {
	t.statFile = fn
}

func (t *Transport) OpenFailuresForTest() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}
