package leaderboard

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/annel0/arena-core/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

var scorePrefix = []byte("score/")

// BadgerRepository локальная таблица рекордов во встроенной BadgerDB.
// Ключи упорядочены так, что прямой обход идёт от лучшего результата.
type BadgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository открывает (или создаёт) базу в каталоге dir
func NewBadgerRepository(dir string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	logging.GetLeaderboardLogger().Info("💾 Таблица рекордов в BadgerDB %s", dir)
	return &BadgerRepository{db: db}, nil
}

// rankKey: префикс, инвертированные очки, время создания, id.
// Неотрицательные float64 сохраняют порядок в битовом представлении.
func rankKey(e Entry) []byte {
	key := make([]byte, 0, len(scorePrefix)+16+len(e.ID))
	key = append(key, scorePrefix...)
	key = binary.BigEndian.AppendUint64(key, ^math.Float64bits(math.Max(0, e.Score)))
	key = binary.BigEndian.AppendUint64(key, uint64(e.CreatedAt.UnixNano()))
	return append(key, e.ID...)
}

func (r *BadgerRepository) Submit(_ context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rankKey(e), data)
	})
}

func (r *BadgerRepository) Top(_ context.Context, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	var out []Entry
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(scorePrefix); it.ValidForPrefix(scorePrefix) && len(out) < limit; it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode entry: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (r *BadgerRepository) Close() error {
	return r.db.Close()
}
