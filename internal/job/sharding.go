package job

import (
	"fmt"
	"hash/fnv"
)

// ShardLabel hashes a parent record id to a stable small cardinality label
// (0-31) for metrics.
func ShardLabel(recordID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recordID))
	return fmt.Sprintf("%d", h.Sum32()%32)
}
