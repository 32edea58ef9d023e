package engine

import (
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/okian/chicane/internal/domain/model"
)

// lockStripes is the number of mutex stripes guarding rider timelines.
// Two riders may share a stripe; that only costs a little parallelism,
// never correctness.
const lockStripes = 128

type keyedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyedLocks) lockFor(key model.RiderKey) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.StageID))
	_, _ = h.Write([]byte(strconv.Itoa(key.RiderNumber)))
	return &l.stripes[h.Sum32()%lockStripes]
}
