package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to the given length. Source identities use all 16 hex chars;
// rendition filenames use the first 8.
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// ContentHashReader computes xxHash64 from a reader, streaming.
func ContentHashReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncate(h.Sum64(), hexLen), nil
}

// PipelineID hashes the normalized description of a pipeline (operation
// kinds, their attributes, output quality) into a 16 hex char identity.
// Parts are NUL separated so adjacent parts cannot run together.
func PipelineID(parts ...string) string {
	return ContentHash([]byte(strings.Join(parts, "\x00")), 16)
}

// CacheKey names a rendition in the rendition cache: the pipeline identity,
// the source identity, the pipeline fingerprint and the requested box. The
// fingerprint only encodes which steps fire, so two pipelines that differ in
// parameters or quality are kept apart by pipelineID. A target axis of 0 is
// kept as 0 so unconstrained requests do not collide with constrained ones.
func CacheKey(pipelineID, sourceHash string, fingerprint int64, w, h int) string {
	return fmt.Sprintf("%s-%s-%d-%dx%d", pipelineID, sourceHash, fingerprint, w, h)
}

func truncate(sum uint64, hexLen int) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sum)
	full := hex.EncodeToString(b[:])
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
