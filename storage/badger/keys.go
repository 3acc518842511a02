package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/citare/core"
	"github.com/poiesic/citare/storage"
)

// Key prefixes for different data types
const (
	recordPrefix       = "embrec:"
	recordEntityPrefix = "embent:"
	jobPrefix          = "job:"
	jobStatusPrefix    = "jobst:"
	jobQueuePrefix     = "jobq:"
	jobSchedulePrefix  = "jobsch:"
)

// makeRecordKey generates a key for an embedding record by content hash.
func makeRecordKey(contentHash string) []byte {
	return []byte(recordPrefix + contentHash)
}

// makePartialEntityKey generates the prefix shared by all chunks of an entity.
// Format: prefix:entityID\x00
func makePartialEntityKey(entityID string) []byte {
	buf := make([]byte, 0, len(recordEntityPrefix)+len(entityID)+1)
	buf = append(buf, recordEntityPrefix...)
	buf = append(buf, entityID...)
	return append(buf, 0)
}

// makeEntityKey generates a composite key for the entity index.
// Format: prefix:entityID\x00chunkIndex
func makeEntityKey(entityID string, chunkIndex int) []byte {
	buf := makePartialEntityKey(entityID)
	// BigEndian so chunks iterate in index order
	return binary.BigEndian.AppendUint32(buf, uint32(chunkIndex))
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(jobID string) []byte {
	return []byte(jobPrefix + jobID)
}

// makePartialJobStatusKey generates the prefix for all jobs in a status.
func makePartialJobStatusKey(status core.JobStatus) []byte {
	return []byte(jobStatusPrefix + string(status) + ":")
}

// makeJobStatusKey generates a composite key for the status index.
// Format: prefix:status:jobID
func makeJobStatusKey(status core.JobStatus, jobID string) []byte {
	return append(makePartialJobStatusKey(status), jobID...)
}

// makeJobQueueKey generates a composite key for the claim queue.
// Format: prefix:(255-rank):scheduledAt:jobID
// Lexicographic order is priority descending, then oldest first.
func makeJobQueueKey(priority core.Priority, scheduledAt time.Time, jobID string) []byte {
	buf := make([]byte, 0, len(jobQueuePrefix)+9+len(jobID))
	buf = append(buf, jobQueuePrefix...)
	buf = append(buf, byte(255-priority.Rank()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(scheduledAt.UnixMicro()))
	return append(buf, jobID...)
}

// jobIDFromQueueKey extracts the job ID from a claim queue key.
func jobIDFromQueueKey(key []byte) (string, error) {
	offset := len(jobQueuePrefix) + 9
	if len(key) <= offset {
		return "", storage.ErrTruncatedData
	}
	return string(key[offset:]), nil
}

// makeJobScheduleKey generates a composite key for the schedule index.
// Format: prefix:scheduledAt:jobID
func makeJobScheduleKey(scheduledAt time.Time, jobID string) []byte {
	buf := make([]byte, 0, len(jobSchedulePrefix)+8+len(jobID))
	buf = append(buf, jobSchedulePrefix...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(scheduledAt.UnixMicro()))
	return append(buf, jobID...)
}

// parseJobScheduleKey splits a schedule index key into its parts.
func parseJobScheduleKey(key []byte) (time.Time, string, error) {
	offset := len(jobSchedulePrefix)
	if len(key) <= offset+8 {
		return time.Time{}, "", storage.ErrTruncatedData
	}
	us := int64(binary.BigEndian.Uint64(key[offset:]))
	return time.UnixMicro(us).UTC(), string(key[offset+8:]), nil
}
