package introspect

import (
	"encoding/binary"
	"fmt"
	"hash"
	"strconv"

	"github.com/spaolacci/murmur3"
)

// Fingerprint returns a 128-bit murmur3 digest of the snapshot structure as
// 32 hex characters. Structurally equal snapshots share a fingerprint.
func (s *Snapshot) Fingerprint() string {
	h := murmur3.New128()
	w := fingerprintWriter{h: h}

	w.count(len(s.schema.Tables))
	for _, t := range s.schema.Tables {
		w.str(t.Schema)
		w.str(t.Name)
		w.count(len(t.Columns))
		for _, c := range t.Columns {
			w.str(c.Name)
			w.str(NormalizeType(c.Type))
			w.flag(c.Nullable)
			if c.DefaultValue != nil {
				w.flag(true)
				w.str(*c.DefaultValue)
			} else {
				w.flag(false)
			}
			w.str(NormalizeType(c.NativeType))
			w.str(c.Enum)
			w.flag(c.AutoIncrement)
		}
		if t.PrimaryKey != nil {
			w.flag(true)
			w.strs(t.PrimaryKey.Columns)
		} else {
			w.flag(false)
		}
		w.count(len(t.Indexes))
		for _, idx := range t.Indexes {
			w.str(idx.Name)
			w.strs(idx.Columns)
			w.flag(idx.IsUnique)
		}
		w.count(len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			w.str(fk.Name)
			w.strs(fk.Columns)
			w.str(fk.ReferencedSchema)
			w.str(fk.ReferencedTable)
			w.strs(fk.ReferencedColumns)
			w.str(string(fk.OnDelete.Normalize()))
			w.str(string(fk.OnUpdate.Normalize()))
		}
	}

	w.count(len(s.schema.Enums))
	for _, e := range s.schema.Enums {
		w.str(e.Name)
		w.strs(e.Values)
	}

	w.count(len(s.schema.Views))
	for _, v := range s.schema.Views {
		w.str(v.Name)
		w.str(v.Definition)
	}

	h1, h2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// fingerprintWriter length-prefixes every field so adjacent values cannot
// run into each other.
type fingerprintWriter struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func (w *fingerprintWriter) count(n int) {
	l := binary.PutUvarint(w.buf[:], uint64(n))
	w.h.Write(w.buf[:l])
}

func (w *fingerprintWriter) str(s string) {
	w.count(len(s))
	w.h.Write([]byte(s))
}

func (w *fingerprintWriter) strs(ss []string) {
	w.count(len(ss))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *fingerprintWriter) flag(b bool) {
	w.str(strconv.FormatBool(b))
}
