package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/storage"
)

// IndexedFile - сохраненный файл участника и хэш его содержимого
type IndexedFile struct {
	Hash       string `json:"hash"`
	StoredName string `json:"stored_name"`
	Size       int64  `json:"size"`
}

// HashIndex - индекс хэшей по папке участника. Позволяет не перечитывать
// все сохраненные файлы при каждой загрузке.
type HashIndex struct {
	Files []IndexedFile `json:"files"`
}

// Hashes возвращает хэши всех сохраненных файлов
func (i *HashIndex) Hashes() []string {
	hashes := make([]string, 0, len(i.Files))
	for _, f := range i.Files {
		hashes = append(hashes, f.Hash)
	}
	return hashes
}

// TotalSize - суммарный размер сохраненных файлов в байтах
func (i *HashIndex) TotalSize() int64 {
	var total int64
	for _, f := range i.Files {
		total += f.Size
	}
	return total
}

func (i *HashIndex) Add(f IndexedFile) {
	i.Files = append(i.Files, f)
}

// IndexStore хранит индексы хэшей участников
type IndexStore interface {
	// Load возвращает (nil, nil), если индекса еще нет
	Load(ctx context.Context, participantID string) (*HashIndex, error)
	Save(ctx context.Context, participantID string, idx *HashIndex) error
}

// FileIndexStore хранит индексы JSON файлами в отдельной директории,
// чтобы они не попадали в папки с загрузками.
type FileIndexStore struct {
	dir string
}

func NewFileIndexStore(dir string) (*FileIndexStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create hash index directory: %w", err)
	}
	return &FileIndexStore{dir: dir}, nil
}

func (s *FileIndexStore) path(participantID string) string {
	return filepath.Join(s.dir, participantID+".json")
}

func (s *FileIndexStore) Load(ctx context.Context, participantID string) (*HashIndex, error) {
	data, err := os.ReadFile(s.path(participantID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hash index: %w", err)
	}

	var idx HashIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse hash index: %w", err)
	}
	return &idx, nil
}

func (s *FileIndexStore) Save(ctx context.Context, participantID string, idx *HashIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode hash index: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, participantID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write hash index: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write hash index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write hash index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(participantID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace hash index: %w", err)
	}
	return nil
}

// LoadIndex загружает индекс участника и сверяет его с листингом хранилища.
// Хэшируются только файлы, которых нет в индексе; записи об удаленных файлах
// выбрасываются. Испорченный индекс строится заново.
func LoadIndex(ctx context.Context, store IndexStore, st storage.Storage, participantID string) (*HashIndex, error) {
	idx, err := store.Load(ctx, participantID)
	if err != nil {
		logger.CtxWarn(ctx, "hash index unreadable, rebuilding", "error", err.Error())
		idx = nil
	}
	if idx == nil {
		idx = &HashIndex{}
	}

	objects, err := st.List(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant files: %w", err)
	}

	onDisk := make(map[string]storage.ObjectInfo, len(objects))
	for _, obj := range objects {
		onDisk[path.Base(obj.Path)] = obj
	}

	changed := false
	reconciled := &HashIndex{Files: make([]IndexedFile, 0, len(objects))}
	known := make(map[string]bool, len(idx.Files))
	for _, f := range idx.Files {
		if _, ok := onDisk[f.StoredName]; !ok || known[f.StoredName] {
			changed = true
			continue
		}
		known[f.StoredName] = true
		reconciled.Add(f)
	}

	for name, obj := range onDisk {
		if known[name] {
			continue
		}
		h, err := hashObject(ctx, st, obj.Path)
		if err != nil {
			return nil, err
		}
		reconciled.Add(IndexedFile{Hash: h, StoredName: name, Size: obj.Size})
		changed = true
	}

	if changed {
		if err := store.Save(ctx, participantID, reconciled); err != nil {
			return nil, err
		}
	}
	return reconciled, nil
}

func hashObject(ctx context.Context, st storage.Storage, p string) (string, error) {
	rc, err := st.Get(ctx, p)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return Hash(content), nil
}
