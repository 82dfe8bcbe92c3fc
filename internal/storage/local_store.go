package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge   = errors.New("storage: размер файла превышает лимит")
	ErrInvalidKey = errors.New("storage: некорректный ключ")
)

// LocalStore хранит объекты в каталоге на диске и отдаёт их по baseURL.
type LocalStore struct {
	rootPath string
	baseURL  string
}

// NewLocalStore создаёт файловое хранилище.
func NewLocalStore(rootPath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &LocalStore{
		rootPath: rootPath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root каталог, который раздаётся по baseURL.
func (s *LocalStore) Root() string {
	return s.rootPath
}

// Put сохраняет объект под ключом и возвращает его URL.
// Запись идёт во временный файл, который переименовывается только после проверки размера.
func (s *LocalStore) Put(ctx context.Context, key, _ string, r io.Reader, maxBytes int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	targetPath := filepath.Join(s.rootPath, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: не удалось создать каталог: %w", err)
	}

	tempPath := targetPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	src := r
	if maxBytes > 0 {
		src = &io.LimitedReader{R: r, N: maxBytes + 1}
	}
	written, err := io.Copy(f, src)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(tempPath)
		return "", ErrTooLarge
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return s.baseURL + "/" + clean, nil
}

// Delete удаляет объект по URL, выданному Put. Отсутствующий файл не ошибка.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ErrInvalidKey
	}
	clean, err := cleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(clean))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// cleanKey не даёт ключу выйти за пределы корня хранилища.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean == "." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
