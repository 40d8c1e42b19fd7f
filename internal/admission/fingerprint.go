package admission

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

// Fingerprint derives the cache key for a request. Text is trimmed and CRLF
// folded to LF before hashing; every field is length-prefixed so adjacent
// fields cannot run together.
func Fingerprint(tier models.Tier, operation string, input []byte, options map[string]string) string {
	d := xxhash.New()

	writeField(d, []byte(tier))
	writeField(d, []byte(strings.ToLower(strings.TrimSpace(operation))))
	writeField(d, normalize(input))

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(d, []byte(k))
		writeField(d, normalize([]byte(options[k])))
	}

	return fmt.Sprintf("%016x", d.Sum64())
}

func normalize(b []byte) []byte {
	return bytes.TrimSpace(bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n")))
}

func writeField(d *xxhash.Digest, field []byte) {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(field)))
	d.Write(prefix[:n])
	d.Write(field)
}
