package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileModeReadOnly rw-r--r--
const FileModeReadOnly fs.FileMode = 0644

// WAL 以 JSON Lines 格式追加寫入的日誌檔，每筆寫入都會 fsync
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// Open 開啟或建立 WAL 檔案 (O_APPEND|O_CREATE|O_RDWR)
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{file: file}, nil
}

// Append 寫入一筆資料並刷入硬碟，回傳後代表資料已落地
func (w *WAL) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(data); err != nil {
		return err
	}
	return w.file.Sync()
}

// Replay 從頭依序讀出所有資料，callback 回傳錯誤會中止重放
func (w *WAL) Replay(callback func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode wal entry: %w", err)
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}

// Close 關閉檔案
func (w *WAL) Close() error {
	return w.file.Close()
}
