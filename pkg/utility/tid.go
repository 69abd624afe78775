package utility

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type TraceID = uint64

const (
	machineBits  = 10
	sequenceBits = 13

	maxSequence = 1<<sequenceBits - 1
	maxMachine  = 1<<machineBits - 1

	timestampShift = machineBits + sequenceBits
	machineShift   = sequenceBits
)

var (
	mu        sync.Mutex
	lastStamp uint64
	sequence  uint64
	machineID uint64
	epoch     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
)

func init() {
	machineID = uint64(uuid.New().ID()) & maxMachine
}

// CreateTraceID issues a unique id from the (timestamp, machine, sequence)
// layout. The sequence resets every millisecond; when it wraps within one,
// the call spins until the clock advances so no tuple is issued twice.
func CreateTraceID() TraceID {
	mu.Lock()
	defer mu.Unlock()

	timestamp := uint64(time.Now().UnixMilli() - epoch)
	if timestamp < lastStamp {
		timestamp = lastStamp
	}

	if timestamp == lastStamp {
		sequence = (sequence + 1) & maxSequence
		if sequence == 0 {
			for timestamp <= lastStamp {
				timestamp = uint64(time.Now().UnixMilli() - epoch)
			}
		}
	} else {
		sequence = 0
	}

	lastStamp = timestamp
	return (timestamp << timestampShift) | (machineID << machineShift) | sequence
}

func ParseTraceID(id TraceID) (timestamp time.Time, machine uint64, seq uint64) {
	seq = id & maxSequence
	machine = (id >> machineShift) & maxMachine
	ts := id >> timestampShift
	timestamp = time.UnixMilli(epoch + int64(ts))
	return
}
