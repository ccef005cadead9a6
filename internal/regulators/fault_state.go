package regulators

import (
	"sync"
	"time"
)

// faultState holds the faults recorded against one device or rail. Writes
// come only from the single execution goroutine; the status surface reads
// snapshots between passes, so a small mutex is enough.
//
// Records deduplicate on fault type and message: a chip that stays
// unresponsive across monitoring passes yields one record with a growing
// count, not an unbounded list.
type faultState struct {
	mu      sync.Mutex
	records []FaultRecord
}

func (f *faultState) record(deviceID, railID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kind := faultType(err)
	message := err.Error()
	for i := range f.records {
		if f.records[i].Type == kind && f.records[i].Message == message {
			f.records[i].Count++
			f.records[i].Time = time.Now()
			return
		}
	}
	rec := newFaultRecord(deviceID, railID, err)
	rec.Count = 1
	f.records = append(f.records, rec)
}

func (f *faultState) snapshot() []FaultRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FaultRecord, len(f.records))
	copy(out, f.records)
	return out
}

func (f *faultState) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
}
