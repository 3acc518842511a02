package badger

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// newEmbeddingRepository returns the concrete type for use inside this package.
func newEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// NewEmbeddingRepository creates a new embedding repository on top of backend.
func NewEmbeddingRepository(backend *Backend) (storage.EmbeddingRepository, error) {
	return newEmbeddingRepository(backend), nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// Upsert inserts records or updates them in place by content hash.
func (r *EmbeddingRepository) Upsert(ctx context.Context, records ...*core.EmbeddingRecord) error {
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
	}

	return r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			if err := upsertRecord(tx, record, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceEntity makes records the complete chunk set of entityID. Records of
// the entity whose hash is not among the new ones are deleted in the same
// transaction, along with index entries past the new chunk count. Returns the
// number of records removed.
func (r *EmbeddingRepository) ReplaceEntity(ctx context.Context, entityID string, records ...*core.EmbeddingRecord) (int, error) {
	if entityID == "" {
		return 0, core.ErrEmptyEntityID
	}
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return 0, err
		}
		if record.EntityID != entityID {
			return 0, fmt.Errorf("%w: record belongs to %q, not %q", core.ErrInvalidRecord, record.EntityID, entityID)
		}
	}

	removed := 0
	err := r.backend.Update(func(tx *badger.Txn) error {
		removed = 0
		previous, err := entityIndex(tx, entityID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		hashes := make(map[string]bool, len(records))
		indexKeys := make(map[string]bool, len(records))
		for _, record := range records {
			if err := upsertRecord(tx, record, now); err != nil {
				return err
			}
			hashes[record.ContentHash] = true
			indexKeys[string(makeEntityKey(record.EntityID, record.ChunkIndex))] = true
		}

		for _, entry := range previous {
			if !indexKeys[string(entry.key)] {
				if err := tx.Delete(entry.key); err != nil {
					return err
				}
			}
			if !hashes[entry.hash] {
				if err := tx.Delete(makeRecordKey(entry.hash)); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// upsertRecord writes one record and its entity index entry inside tx.
func upsertRecord(tx *badger.Txn, record *core.EmbeddingRecord, now time.Time) error {
	key := makeRecordKey(record.ContentHash)

	existing, err := getValue(tx, key, storage.UnmarshalRecord)
	if err != nil {
		return err
	}

	if existing != nil {
		record.CreatedAt = existing.CreatedAt
		// Drop a stale entity index entry if the hash moved
		if existing.EntityID != record.EntityID || existing.ChunkIndex != record.ChunkIndex {
			if err := tx.Delete(makeEntityKey(existing.EntityID, existing.ChunkIndex)); err != nil {
				return err
			}
		}
	} else if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
		return err
	}
	return tx.Set(makeEntityKey(record.EntityID, record.ChunkIndex), []byte(record.ContentHash))
}

// GetByHash retrieves a record by content hash.
func (r *EmbeddingRepository) GetByHash(ctx context.Context, contentHash string) (*core.EmbeddingRecord, error) {
	var result *core.EmbeddingRecord
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = getValue(tx, makeRecordKey(contentHash), storage.UnmarshalRecord)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// GetByEntity returns the chunks of an entity in ChunkIndex order.
func (r *EmbeddingRepository) GetByEntity(ctx context.Context, entityID string) ([]*core.EmbeddingRecord, error) {
	results := []*core.EmbeddingRecord{}
	err := r.backend.View(func(tx *badger.Txn) error {
		hashes, err := r.entityHashes(tx, entityID)
		if err != nil {
			return err
		}
		for _, hash := range hashes {
			record, err := getValue(tx, makeRecordKey(hash), storage.UnmarshalRecord)
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	})
	return results, err
}

// entityHashes reads the entity index in chunk order.
func (r *EmbeddingRepository) entityHashes(tx *badger.Txn, entityID string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialEntityKey(entityID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var hashes []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			hashes = append(hashes, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

type indexEntry struct {
	key  []byte
	hash string
}

// entityIndex copies the entity index entries of entityID.
func entityIndex(tx *badger.Txn, entityID string) ([]indexEntry, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialEntityKey(entityID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var entries []indexEntry
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indexEntry{key: item.KeyCopy(nil), hash: string(val)})
	}
	return entries, nil
}

// GetPage reads a bounded page of records and filters it.
func (r *EmbeddingRepository) GetPage(ctx context.Context, filters core.Filters, limit int) ([]*core.EmbeddingRecord, error) {
	if limit < 0 {
		return nil, storage.ErrInvalidQuery
	}
	if limit == 0 || limit > storage.MaxPageSize {
		limit = storage.MaxPageSize
	}

	results := []*core.EmbeddingRecord{}
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchSize = limit
		iter := tx.NewIterator(opts)
		defer iter.Close()

		scanned := 0
		for iter.Rewind(); iter.Valid() && scanned < limit; iter.Next() {
			scanned++
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if filters.Match(record) {
				results = append(results, record)
			}
		}
		return nil
	})
	return results, err
}

// ForEach walks every record in key order, one read transaction per batch.
func (r *EmbeddingRepository) ForEach(ctx context.Context, batchSize int, fn func([]*core.EmbeddingRecord) error) error {
	if batchSize <= 0 {
		batchSize = storage.MaxPageSize
	}

	var lastKey []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := make([]*core.EmbeddingRecord, 0, batchSize)
		err := r.backend.View(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(recordPrefix)
			iter := tx.NewIterator(opts)
			defer iter.Close()

			if lastKey == nil {
				iter.Rewind()
			} else {
				iter.Seek(lastKey)
				if iter.Valid() && bytes.Equal(iter.Item().Key(), lastKey) {
					iter.Next()
				}
			}

			for ; iter.Valid() && len(batch) < batchSize; iter.Next() {
				item := iter.Item()
				var record *core.EmbeddingRecord
				err := item.Value(func(val []byte) error {
					var err error
					record, err = storage.UnmarshalRecord(val)
					return err
				})
				if err != nil {
					return err
				}
				batch = append(batch, record)
				lastKey = item.KeyCopy(lastKey[:0])
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
	}
}

// DeleteByEntity removes every chunk of an entity.
func (r *EmbeddingRepository) DeleteByEntity(ctx context.Context, entityID string) (int, error) {
	deleted := 0
	err := r.backend.Update(func(tx *badger.Txn) error {
		deleted = 0
		entries, err := entityIndex(tx, entityID)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if err := tx.Delete(makeRecordKey(entry.hash)); err != nil {
				return err
			}
			if err := tx.Delete(entry.key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// Count returns the number of stored records.
func (r *EmbeddingRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}
