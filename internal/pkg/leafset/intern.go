package leafset

import (
	"strconv"
	"sync"

	"github.com/minio/highwayhash"

	"github.com/coldtrace/taintcore/internal/pkg/label"
)

// internKey is a fixed, non-secret 32-byte key. HighwayHash is used here
// purely as a fast fingerprint for deduplicating ReturnAccessPath
// suffixes, not as a MAC, so a constant key is fine.
var internKey = make([]byte, 32)

var (
	internMu    sync.Mutex
	internTable = map[string]label.Path{}
)

// internPath fingerprints p with HighwayHash and returns the canonical
// key a Leaf's ReturnAccessPaths map stores it under, reusing the first
// Path value ever seen for that fingerprint instead of keeping a fresh
// allocation per occurrence (Design Note §9: complex features must be
// interned or bounded at widen time to keep the lattice finite).
func internPath(p label.Path) (string, label.Path) {
	h, err := highwayhash.New64(internKey)
	if err != nil {
		panic(err) // internKey is a fixed 32-byte constant; this cannot fail
	}
	h.Write([]byte(p.String()))
	key := strconv.FormatUint(h.Sum64(), 16)

	internMu.Lock()
	defer internMu.Unlock()
	if canon, ok := internTable[key]; ok {
		return key, canon
	}
	internTable[key] = p
	return key, p
}
