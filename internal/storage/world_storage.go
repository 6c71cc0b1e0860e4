package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/annel0/dig-world/internal/logging"
	"github.com/annel0/dig-world/internal/vec"
	"github.com/annel0/dig-world/internal/world"
	"github.com/annel0/dig-world/internal/world/material"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// ErrNotReady — хранилище закрыто или не открыто
var ErrNotReady = errors.New("хранилище не готово")

const chunkKeyPrefix = "chunk:"

// ChunkRecord — формат сохранённого чанка (до сжатия zstd)
type ChunkRecord struct {
	Coords  vec.Vec2  `json:"coords"`
	Size    int       `json:"size"`
	Cells   []byte    `json:"cells"`
	SavedAt time.Time `json:"saved_at"`
}

// WorldStorage хранит выгруженные чанки в BadgerDB
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// NewWorldStorage открывает хранилище мира в dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB
	return open(opts, dbPath)
}

// NewMemoryStorage открывает хранилище в памяти (для тестов и временных миров)
func NewMemoryStorage() (*WorldStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, "")
}

func open(opts badger.Options, dbPath string) (*WorldStorage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.decoder.Close()
	if err := ws.encoder.Close(); err != nil {
		ws.logger.Warn("Ошибка закрытия zstd encoder: %v", err)
	}
	return ws.db.Close()
}

func chunkKey(coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkKeyPrefix, coords.X, coords.Y))
}

// EncodeChunk сериализует и сжимает чанк
func (ws *WorldStorage) EncodeChunk(chunk *world.Chunk) ([]byte, error) {
	cells := chunk.Snapshot()
	raw := make([]byte, len(cells))
	for i, id := range cells {
		raw[i] = byte(id)
	}

	data, err := json.Marshal(ChunkRecord{
		Coords:  chunk.Coords,
		Size:    vec.ChunkSize,
		Cells:   raw,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	return ws.encoder.EncodeAll(data, nil), nil
}

// DecodeChunk восстанавливает чанк и проверяет коды материалов
func (ws *WorldStorage) DecodeChunk(payload []byte) (*world.Chunk, error) {
	data, err := ws.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки чанка: %w", err)
	}

	var rec ChunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка: %w", err)
	}
	if rec.Size != vec.ChunkSize || len(rec.Cells) != world.CellCount {
		return nil, fmt.Errorf("чанк (%d,%d): размер %d/%d не совпадает с %d",
			rec.Coords.X, rec.Coords.Y, rec.Size, len(rec.Cells), vec.ChunkSize)
	}

	chunk := world.NewChunk(rec.Coords)
	for i, b := range rec.Cells {
		id := material.ID(b)
		if !material.IsValid(id) {
			local := vec.Vec2{X: i % vec.ChunkSize, Y: i / vec.ChunkSize}
			return nil, &world.CorruptCellError{Pos: vec.FromChunkLocal(rec.Coords, local), Code: id}
		}
		chunk.Cells[i] = id
	}
	chunk.RecomputeSurface()
	return chunk, nil
}

// SaveChunk сохраняет чанк целиком
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	data, err := ws.EncodeChunk(chunk)
	if err != nil {
		return err
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(chunk.Coords), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	ws.logger.Debug("Чанк (%d,%d) сохранён, %d байт", chunk.Coords.X, chunk.Coords.Y, len(data))
	return nil
}

// LoadChunk загружает чанк; found=false, если чанк не сохранялся
func (ws *WorldStorage) LoadChunk(coords vec.Vec2) (*world.Chunk, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, false, ErrNotReady
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coords))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	chunk, err := ws.DecodeChunk(data)
	if err != nil {
		return nil, false, err
	}
	if chunk.Coords != coords {
		return nil, false, fmt.Errorf("ключ (%d,%d) содержит чанк (%d,%d)",
			coords.X, coords.Y, chunk.Coords.X, chunk.Coords.Y)
	}
	return chunk, true, nil
}

// DeleteChunk удаляет сохранённый чанк
func (ws *WorldStorage) DeleteChunk(coords vec.Vec2) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}
	return ws.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(coords))
	})
}

// StoredChunks возвращает координаты всех сохранённых чанков
func (ws *WorldStorage) StoredChunks() ([]vec.Vec2, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}

	coords := make([]vec.Vec2, 0)
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), chunkKeyPrefix)
			var c vec.Vec2
			if _, err := fmt.Sscanf(key, "%d:%d", &c.X, &c.Y); err != nil {
				ws.logger.Warn("Некорректный ключ чанка '%s': %v", key, err)
				continue
			}
			coords = append(coords, c)
		}
		return nil
	})
	return coords, err
}
