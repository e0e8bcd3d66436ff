package services

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"socialfeed/pkg/utils"

	"github.com/google/uuid"
)

// IDGenerator hands out opaque unique identifiers for users and posts.
type IDGenerator interface {
	NewID() (string, error)
}

const (
	IDSchemeUUID      = "uuid"
	IDSchemeSnowflake = "snowflake"
)

func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch scheme {
	case IDSchemeUUID, "":
		return UUIDGenerator{}, nil
	case IDSchemeSnowflake:
		return NewSnowflakeGenerator(utils.GetMachineID(), time.Now), nil
	}
	return nil, fmt.Errorf("unknown id scheme %q", scheme)
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SnowflakeGenerator builds time-ordered numeric ids from a machine id, a
// millisecond timestamp and a per-millisecond counter.
type SnowflakeGenerator struct {
	machineID        string
	now              func() time.Time
	currentTimestamp int64
	counter          int64
	mu               sync.Mutex
}

const maxCounter = 0xFFF

func NewSnowflakeGenerator(machineID string, now func() time.Time) *SnowflakeGenerator {
	return &SnowflakeGenerator{machineID: machineID, now: now, currentTimestamp: -1}
}

func (u *SnowflakeGenerator) getCounter(timestamp int64) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.currentTimestamp > timestamp {
		return 0, fmt.Errorf("timestamps are not incremental")
	}
	if u.currentTimestamp == timestamp {
		if u.counter >= maxCounter {
			return 0, fmt.Errorf("id counter exhausted for timestamp %d", timestamp)
		}
		u.counter++
		return u.counter, nil
	}
	u.currentTimestamp = timestamp
	u.counter = 0
	return u.counter, nil
}

func (u *SnowflakeGenerator) NewID() (string, error) {
	timestamp := u.now().UnixMilli() - utils.CUSTOM_EPOCH
	counter, err := u.getCounter(timestamp)
	if err != nil {
		return "", err
	}
	id, err := utils.GenUniqueID(u.machineID, timestamp, counter)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}
