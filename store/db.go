package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = leveldb.ErrNotFound

var (
	recordPrefix = []byte("proof/")
	cursorKey    = []byte("cursor/discovery")
)

type database struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

func newDatabase(dbPath string) (*database, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database @ %s: %w", dbPath, err)
	}

	return &database{db: db, wo: &opt.WriteOptions{Sync: true}}, nil
}

func (db *database) Close() error {
	return db.db.Close()
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordPrefix...), id...)
}

func (db *database) SaveRecord(r *Record) error {
	serialized, err := serializeRecord(r)
	if err != nil {
		return fmt.Errorf("failed serializing record %s: %w", r.ID, err)
	}
	if err := db.db.Put(recordKey(r.ID), serialized, db.wo); err != nil {
		return fmt.Errorf("storing record %s in DB: %w", r.ID, err)
	}
	return nil
}

// SaveRecordsAndCursor writes the records and the discovery cursor in a single batch.
func (db *database) SaveRecordsAndCursor(records []*Record, cursor uint64) error {
	batch := new(leveldb.Batch)
	for _, r := range records {
		serialized, err := serializeRecord(r)
		if err != nil {
			return fmt.Errorf("failed serializing record %s: %w", r.ID, err)
		}
		batch.Put(recordKey(r.ID), serialized)
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], cursor)
	batch.Put(cursorKey, v[:])
	if err := db.db.Write(batch, db.wo); err != nil {
		return fmt.Errorf("storing %d records and cursor %d: %w", len(records), cursor, err)
	}
	return nil
}

// LoadRecords calls fn for every record persisted in the database.
func (db *database) LoadRecords(fn func(Record)) error {
	iter := db.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		r, err := deserializeRecord(iter.Value())
		if err != nil {
			return fmt.Errorf("decoding record %q: %w", iter.Key(), err)
		}
		fn(r)
	}
	return iter.Error()
}

func (db *database) SaveCursor(block uint64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], block)
	if err := db.db.Put(cursorKey, v[:], db.wo); err != nil {
		return fmt.Errorf("storing discovery cursor: %w", err)
	}
	return nil
}

func (db *database) GetCursor() (uint64, error) {
	v, err := db.db.Get(cursorKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return 0, ErrNotFound
	case err != nil:
		return 0, fmt.Errorf("querying discovery cursor: %w", err)
	case len(v) != 8:
		return 0, fmt.Errorf("corrupted discovery cursor (%d bytes)", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func serializeRecord(r *Record) ([]byte, error) {
	var dataBuf bytes.Buffer
	if _, err := xdr.Marshal(&dataBuf, r); err != nil {
		return nil, fmt.Errorf("serialization failure: %w", err)
	}
	return dataBuf.Bytes(), nil
}

func deserializeRecord(data []byte) (Record, error) {
	var r Record
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &r); err != nil {
		return Record{}, fmt.Errorf("failed to deserialize: %w", err)
	}
	if len(r.Proof.Inputs) == 0 {
		r.Proof.Inputs = nil
	}
	return r, nil
}
