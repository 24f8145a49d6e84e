// Package pvstore persists PVStructure records by name.
//
// Each record is a msgpack envelope holding the value in pvData wire format,
// its modification count and times, the byte order, an xxhash checksum of
// the value bytes and the structural hash of its descriptor. Descriptors are
// stored once per hash in a separate bucket, so a record can be decoded
// without knowing its type in advance.
package pvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/pvdata"
	"github.com/andreyvit/pvdata/bitset"
	"github.com/andreyvit/pvdata/wire"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrChecksum       = fmt.Errorf("checksum mismatch: %w", pvdata.ErrCorruptStream)
	ErrClosed         = errors.New("store closed")
	errNotWritable    = errors.New("tx not writable")
)

const (
	rootBucket    = "pvstore"
	recordsBucket = "records"
	schemasBucket = "schemas"
)

type Options struct {
	Logger    *slog.Logger
	Verbose   bool
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration

	// ByteOrder is used for newly written values. Existing records keep the
	// order they were written in. Defaults to big-endian.
	ByteOrder binary.ByteOrder
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ByteOrder == nil {
		o.ByteOrder = wire.DefaultByteOrder
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
}

type Store struct {
	st        storage
	reg       *pvdata.Registry
	logger    *slog.Logger
	context   context.Context
	verbose   bool
	order     binary.ByteOrder
	debugName string
	now       func() time.Time
}

// Record is a decoded record along with its bookkeeping.
type Record struct {
	Name     string
	ModCount uint64
	Created  time.Time
	Updated  time.Time
	Value    *pvdata.PVStructure
}

type envelope struct {
	ModCount     uint64    `msgpack:"n"`
	Created      time.Time `msgpack:"c"`
	Updated      time.Time `msgpack:"u"`
	SchemaHash   uint64    `msgpack:"h"`
	LittleEndian bool      `msgpack:"le,omitempty"`
	Checksum     uint64    `msgpack:"x"`
	Data         []byte    `msgpack:"d"`
}

func (env *envelope) order() binary.ByteOrder {
	if env.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Open opens or creates a Bolt-backed store at path. Descriptors of loaded
// records are interned in reg.
func Open(path string, reg *pvdata.Registry, opt Options) (*Store, error) {
	opt.setDefaults()
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("pvstore: %w", err)
	}
	s, err := newStore(newBoltStorage(bdb), reg, opt, path)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory returns a transient store that keeps everything in memory.
func OpenMemory(reg *pvdata.Registry, opt Options) (*Store, error) {
	opt.setDefaults()
	return newStore(newMemStorage(), reg, opt, ":memory:")
}

func newStore(st storage, reg *pvdata.Registry, opt Options, debugName string) (*Store, error) {
	s := &Store{
		st:        st,
		reg:       reg,
		logger:    opt.Logger,
		context:   context.Background(),
		verbose:   opt.Verbose,
		order:     opt.ByteOrder,
		debugName: debugName,
		now:       time.Now,
	}
	var count int
	var size int64
	err := s.write(func(tx storageTx) error {
		records, err := tx.CreateBucket(rootBucket, recordsBucket)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucket(rootBucket, schemasBucket); err != nil {
			return err
		}
		count, size = records.KeyCount(), tx.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pvstore: initializing %s: %w", debugName, err)
	}
	s.logger.LogAttrs(s.context, slog.LevelInfo, "pvstore: opened", slog.String("store", debugName), slog.Int("records", count), slog.Int64("size", size))
	return s, nil
}

func (s *Store) Close() error {
	err := s.st.Close()
	s.logger.LogAttrs(s.context, slog.LevelInfo, "pvstore: closed", slog.String("store", s.debugName))
	return err
}

func (s *Store) Registry() *pvdata.Registry { return s.reg }

func (s *Store) read(f func(tx storageTx) error) error {
	tx, err := s.st.BeginTx(false)
	if err != nil {
		return fmt.Errorf("pvstore: %w", err)
	}
	defer tx.Rollback()
	return f(tx)
}

func (s *Store) write(f func(tx storageTx) error) error {
	tx, err := s.st.BeginTx(true)
	if err != nil {
		return fmt.Errorf("pvstore: %w", err)
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func buckets(tx storageTx) (records, schemas storageBucket) {
	records, schemas = tx.Bucket(rootBucket, recordsBucket), tx.Bucket(rootBucket, schemasBucket)
	if records == nil || schemas == nil {
		panic("pvstore: buckets missing")
	}
	return
}

func schemaKey(hash uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, hash)
}

func loadEnvelope(records storageBucket, name string) (*envelope, error) {
	raw := records.Get([]byte(name))
	if raw == nil {
		return nil, nil
	}
	env := new(envelope)
	if err := msgpack.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("pvstore: %s: %w: %v", name, pvdata.ErrCorruptStream, err)
	}
	if xxhash.Sum64(env.Data) != env.Checksum {
		return nil, fmt.Errorf("pvstore: %s: %w", name, ErrChecksum)
	}
	return env, nil
}

func (s *Store) saveEnvelope(tx storageTx, name string, env *envelope, pvs *pvdata.PVStructure) error {
	records, schemas := buckets(tx)
	f := pvs.Structure()
	key := schemaKey(f.Hash())
	if schemas.Get(key) == nil {
		desc, err := pvdata.MarshalField(f)
		if err != nil {
			return fmt.Errorf("pvstore: %s: %w", name, err)
		}
		if err := schemas.Put(key, desc); err != nil {
			return err
		}
	}

	data, err := pvdata.MarshalOrder(pvs, s.order)
	if err != nil {
		return fmt.Errorf("pvstore: %s: %w", name, err)
	}
	now := s.now()
	if env.Created.IsZero() {
		env.Created = now
	}
	env.Updated = now
	env.ModCount++
	env.SchemaHash = f.Hash()
	env.LittleEndian = s.order == binary.LittleEndian
	env.Data = data
	env.Checksum = xxhash.Sum64(data)

	raw, err := msgpack.Marshal(env)
	if err != nil {
		return fmt.Errorf("pvstore: %s: %w", name, err)
	}
	return records.Put([]byte(name), raw)
}

func (s *Store) decode(schemas storageBucket, name string, env *envelope) (*pvdata.PVStructure, error) {
	desc := schemas.Get(schemaKey(env.SchemaHash))
	if desc == nil {
		return nil, fmt.Errorf("pvstore: %s: descriptor %016x missing: %w", name, env.SchemaHash, pvdata.ErrCorruptStream)
	}
	f, err := pvdata.UnmarshalField(desc, s.reg)
	if err != nil {
		return nil, fmt.Errorf("pvstore: %s: %w", name, err)
	}
	st, ok := f.(*pvdata.Structure)
	if !ok {
		return nil, fmt.Errorf("pvstore: %s: stored %v is not a structure: %w", name, f.Kind(), pvdata.ErrCorruptStream)
	}
	pvs := pvdata.NewPVStructure(st)
	if err := pvdata.UnmarshalOrder(env.Data, pvs, env.order()); err != nil {
		return nil, fmt.Errorf("pvstore: %s: %w", name, err)
	}
	return pvs, nil
}

// Put stores the full value of pvs under name, replacing any previous
// record.
func (s *Store) Put(name string, pvs *pvdata.PVStructure) error {
	if name == "" {
		return fmt.Errorf("pvstore: empty record name: %w", pvdata.ErrInvalidArgument)
	}
	return s.write(func(tx storageTx) error {
		records, _ := buckets(tx)
		env, err := loadEnvelope(records, name)
		if err != nil {
			return err
		}
		if env == nil {
			env = new(envelope)
		}
		return s.saveEnvelope(tx, name, env, pvs)
	})
}

// PutChanged updates only the fields of an existing record whose offsets
// are set in changed, taking their values from pvs. The update goes through
// the differential codec. A missing record is stored in full. The stored
// record must have the same descriptor as pvs.
func (s *Store) PutChanged(name string, pvs *pvdata.PVStructure, changed *bitset.BitSet) error {
	if changed.IsEmpty() {
		return nil
	}
	return s.write(func(tx storageTx) error {
		records, schemas := buckets(tx)
		env, err := loadEnvelope(records, name)
		if err != nil {
			return err
		}
		if env == nil {
			return s.saveEnvelope(tx, name, new(envelope), pvs)
		}
		if env.SchemaHash != pvs.Structure().Hash() {
			s.logger.LogAttrs(s.context, slog.LevelWarn, "pvstore: schema mismatch", slog.String("store", s.debugName), slog.String("record", name), slog.String("op", "put_changed"))
			return fmt.Errorf("pvstore: %s: %w", name, ErrSchemaMismatch)
		}
		cur, err := s.decode(schemas, name, env)
		if err != nil {
			return err
		}

		w := wire.NewWriter(s.order)
		if err := pvdata.SerializeChanged(w, pvs, changed, nil); err != nil {
			return fmt.Errorf("pvstore: %s: %w", name, err)
		}
		r := wire.NewReader(w.Bytes(), s.order)
		if err := pvdata.DeserializeChanged(r, cur, changed, nil); err != nil {
			return fmt.Errorf("pvstore: %s: %w", name, err)
		}
		if err := s.saveEnvelope(tx, name, env, cur); err != nil {
			return err
		}
		if s.verbose {
			s.logger.LogAttrs(s.context, slog.LevelDebug, "pvstore: differential write", slog.String("store", s.debugName), slog.String("record", name), slog.String("changed", changed.String()), slog.Int("delta", len(w.Bytes())), slog.Int("size", len(env.Data)), slog.Uint64("mod", env.ModCount))
		}
		return nil
	})
}

// Get decodes the record stored under name using its stored descriptor.
func (s *Store) Get(name string) (*Record, error) {
	var rec *Record
	err := s.read(func(tx storageTx) error {
		records, schemas := buckets(tx)
		env, err := loadEnvelope(records, name)
		if err != nil {
			return err
		}
		if env == nil {
			return fmt.Errorf("pvstore: %s: %w", name, ErrNotFound)
		}
		pvs, err := s.decode(schemas, name, env)
		if err != nil {
			return err
		}
		rec = &Record{name, env.ModCount, env.Created, env.Updated, pvs}
		return nil
	})
	return rec, err
}

// Load decodes the record stored under name into pvs. When the stored
// descriptor differs from pvs's, the value is converted field by field if
// the two are copy-compatible; otherwise Load fails with ErrSchemaMismatch.
// The returned Record's Value is pvs.
func (s *Store) Load(name string, pvs *pvdata.PVStructure) (*Record, error) {
	rec, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if !pvdata.Equal(rec.Value.Field(), pvs.Field()) {
		s.logger.LogAttrs(s.context, slog.LevelWarn, "pvstore: schema mismatch", slog.String("store", s.debugName), slog.String("record", name), slog.String("stored", rec.Value.Structure().ID()), slog.String("wanted", pvs.Structure().ID()))
		if !pvdata.IsCopyCompatible(rec.Value.Field(), pvs.Field()) {
			return nil, fmt.Errorf("pvstore: %s: %w", name, ErrSchemaMismatch)
		}
	}
	err = pvdata.CopyStructure(rec.Value, pvs)
	if err != nil {
		return nil, fmt.Errorf("pvstore: %s: %w", name, err)
	}
	rec.Value = pvs
	return rec, nil
}

// Delete removes the record stored under name and reports whether it
// existed. Descriptors are never removed.
func (s *Store) Delete(name string) (bool, error) {
	var found bool
	err := s.write(func(tx storageTx) error {
		records, _ := buckets(tx)
		key := []byte(name)
		if records.Get(key) == nil {
			return nil
		}
		found = true
		return records.Delete(key)
	})
	return found, err
}

// List returns the names of records starting with prefix, in byte order.
func (s *Store) List(prefix string) ([]string, error) {
	var names []string
	err := s.read(func(tx storageTx) error {
		records, _ := buckets(tx)
		c := records.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}

// Len returns the number of stored records.
func (s *Store) Len() (int, error) {
	var n int
	err := s.read(func(tx storageTx) error {
		records, _ := buckets(tx)
		n = records.KeyCount()
		return nil
	})
	return n, err
}
