package badgerstore

import "encoding/binary"

var (
	prefixNode  = []byte("n:")
	prefixTitle = []byte("t:")
	prefixAnc   = []byte("a:")
	prefixDesc  = []byte("d:")
	keyNextID   = []byte("m:next")
)

func be64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func readBE64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func join(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func nodeKey(id int64) []byte { return join(prefixNode, be64(id)) }

// titlePrefix covers every id carrying title. The length prefix keeps
// "ab" from matching a scan for "a".
func titlePrefix(title string) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(title)))
	return join(prefixTitle, l, []byte(title))
}

func titleKey(title string, id int64) []byte { return join(titlePrefix(title), be64(id)) }

func ancKey(anc, desc int64) []byte  { return join(prefixAnc, be64(anc), be64(desc)) }
func descKey(desc, anc int64) []byte { return join(prefixDesc, be64(desc), be64(anc)) }

func ancPrefix(anc int64) []byte   { return join(prefixAnc, be64(anc)) }
func descPrefix(desc int64) []byte { return join(prefixDesc, be64(desc)) }

// pairFromKey splits the two ids following a two-byte prefix.
func pairFromKey(key []byte) (int64, int64) {
	return readBE64(key[2:10]), readBE64(key[10:18])
}
