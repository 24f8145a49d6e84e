package pvstore

import (
	"maps"
	"slices"
	"sort"
	"sync"
)

// memStorage keeps buckets in memory. A transaction sees the tables that
// were committed when it began. A write transaction copies a table the
// first time it modifies it and publishes its table set on commit. Writers
// are serialized.
type memStorage struct {
	writer sync.Mutex

	mu     sync.Mutex
	tables map[memPath]*memTable
	closed bool
}

type memPath struct {
	name, sub string
}

func newMemStorage() storage {
	return &memStorage{tables: make(map[memPath]*memTable)}
}

func (s *memStorage) committed() (map[memPath]*memTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.tables, nil
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.writer.Lock()
	}
	tables, err := s.committed()
	if err != nil {
		if writable {
			s.writer.Unlock()
		}
		return nil, err
	}
	tx := &memTx{s: s, tables: tables}
	if writable {
		tx.tables = maps.Clone(tables)
		tx.owned = make(map[memPath]bool)
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = nil
	return nil
}

type memTx struct {
	s      *memStorage
	tables map[memPath]*memTable
	owned  map[memPath]bool // nil for read-only transactions
	done   bool
}

func (tx *memTx) writable() bool { return tx.owned != nil }

// own returns a table at p that this transaction may modify.
func (tx *memTx) own(p memPath) *memTable {
	t := tx.tables[p]
	if !tx.owned[p] {
		t = t.clone()
		tx.tables[p] = t
		tx.owned[p] = true
	}
	return t
}

func (tx *memTx) Bucket(name, sub string) storageBucket {
	p := memPath{name, sub}
	if tx.tables[p] == nil {
		return nil
	}
	return memBucket{tx: tx, path: p}
}

// CreateBucket also creates the root bucket of a nested one, as Bolt does.
func (tx *memTx) CreateBucket(name, sub string) (storageBucket, error) {
	if !tx.writable() {
		return nil, errNotWritable
	}
	for _, p := range []memPath{{name, ""}, {name, sub}} {
		if tx.tables[p] == nil {
			tx.tables[p] = newMemTable()
			tx.owned[p] = true
		}
	}
	return memBucket{tx: tx, path: memPath{name, sub}}, nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable() {
		return errNotWritable
	}
	defer tx.finish()
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if tx.s.closed {
		return ErrClosed
	}
	tx.s.tables = tx.tables
	return nil
}

func (tx *memTx) Rollback() error {
	if !tx.done {
		tx.finish()
	}
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	if tx.writable() {
		tx.s.writer.Unlock()
	}
}

func (tx *memTx) Size() int64 {
	var n int64
	for _, t := range tx.tables {
		for k, v := range t.vals {
			n += int64(len(k) + len(v))
		}
	}
	return n
}

// memTable is one bucket: values by key plus the keys in sorted order.
// Stored values are never modified in place, so clones share them.
type memTable struct {
	keys []string
	vals map[string][]byte
}

func newMemTable() *memTable {
	return &memTable{vals: make(map[string][]byte)}
}

func (t *memTable) clone() *memTable {
	return &memTable{keys: slices.Clone(t.keys), vals: maps.Clone(t.vals)}
}

func (t *memTable) search(key string) int {
	return sort.SearchStrings(t.keys, key)
}

type memBucket struct {
	tx   *memTx
	path memPath
}

func (b memBucket) table() *memTable { return b.tx.tables[b.path] }

func (b memBucket) Get(key []byte) []byte {
	return b.table().vals[string(key)]
}

func (b memBucket) Put(key, value []byte) error {
	if !b.tx.writable() {
		return errNotWritable
	}
	t := b.tx.own(b.path)
	k := string(key)
	if _, ok := t.vals[k]; !ok {
		t.keys = slices.Insert(t.keys, t.search(k), k)
	}
	t.vals[k] = slices.Clone(value)
	return nil
}

func (b memBucket) Delete(key []byte) error {
	if !b.tx.writable() {
		return errNotWritable
	}
	k := string(key)
	if _, ok := b.table().vals[k]; !ok {
		return nil
	}
	t := b.tx.own(b.path)
	delete(t.vals, k)
	i := t.search(k)
	t.keys = slices.Delete(t.keys, i, i+1)
	return nil
}

func (b memBucket) Cursor() storageCursor {
	return &memCursor{t: b.table()}
}

func (b memBucket) KeyCount() int { return len(b.table().keys) }

type memCursor struct {
	t   *memTable
	pos int
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	c.pos = c.t.search(string(seek))
	return c.current()
}

func (c *memCursor) Next() ([]byte, []byte) {
	c.pos++
	return c.current()
}

func (c *memCursor) current() ([]byte, []byte) {
	if c.pos >= len(c.t.keys) {
		return nil, nil
	}
	k := c.t.keys[c.pos]
	return []byte(k), c.t.vals[k]
}
