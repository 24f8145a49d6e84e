package pvdata

import (
	"encoding/binary"
	"sync"

	"github.com/andreyvit/pvdata/wire"
)

var writerPool = &sync.Pool{
	New: func() any {
		return wire.NewWriter(binary.BigEndian)
	},
}

func acquireWriter(order binary.ByteOrder) *wire.Writer {
	w := writerPool.Get().(*wire.Writer)
	w.Reset(order)
	return w
}

// releaseWriter returns w to the pool unless it grew unusually large.
func releaseWriter(w *wire.Writer) {
	if cap(w.Bytes()) > 1<<20 {
		return
	}
	writerPool.Put(w)
}
