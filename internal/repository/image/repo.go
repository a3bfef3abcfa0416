package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/aliskhannn/image-hosting/internal/model"
)

var ErrImageNotFound = errors.New("image not found")

// Repository persists image metadata in an embedded badger database.
// Records are stored as JSON under the image UUID key. Badger commits
// synchronously (SyncWrites), so a successful Save/Delete survives a crash
// immediately after the call returns.
type Repository struct {
	db *badger.DB
}

// NewRepository opens (or creates) the badger database at dir.
func NewRepository(dir string) (*Repository, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger logging
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveImage inserts or fully replaces the record for img.ID.
func (r *Repository) SaveImage(ctx context.Context, img model.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("save: failed to marshal image: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(img.ID.String()), data)
	})
	if err != nil {
		return fmt.Errorf("save: failed to save image: %w", err)
	}

	return nil
}

// GetImage returns the record for id, or ErrImageNotFound.
func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (model.Image, error) {
	if err := ctx.Err(); err != nil {
		return model.Image{}, err
	}

	var img model.Image
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &img)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.Image{}, ErrImageNotFound
		}

		return model.Image{}, fmt.Errorf("get: failed to get image: %w", err)
	}

	return img, nil
}

// ListImages returns all records in a single snapshot read. Order follows
// badger's key order and is stable for a given set of keys.
func (r *Repository) ListImages(ctx context.Context) ([]model.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var images []model.Image
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var img model.Image
				if err := json.Unmarshal(val, &img); err != nil {
					return err
				}
				images = append(images, img)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list: failed to list images: %w", err)
	}

	return images, nil
}

// DeleteImage removes the record for id. Deleting an absent id is not an
// error.
func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(id.String()))
	})
	if err != nil {
		return fmt.Errorf("delete: failed to delete image: %w", err)
	}

	return nil
}
