package strategy

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic entropy keeps trade IDs generated within the same
	// millisecond lexicographically increasing.
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewTradeID returns the identifier correlating a position's OPEN and CLOSE
// ledger rows. IDs sort by generation time within a pair.
func NewTradeID(pair string) string {
	idMu.Lock()
	defer idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), idEntropy)
	if err != nil {
		panic(err)
	}
	return pair + "_" + id.String()
}
