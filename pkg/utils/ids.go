package utils

import (
	"bytes"
	"net"
	"os"
	"strconv"
	"strings"
)

// CUSTOM_EPOCH is 2018-01-01T00:00:00Z in milliseconds.
const CUSTOM_EPOCH int64 = 1514764800000

// from original deathstarbench code
func HashMacAddressPid(mac string) string {
	var hash uint16 = 0
	macPid := mac + strconv.Itoa(os.Getpid())
	for i := 0; i < len(macPid); i++ {
		hash += uint16(macPid[i]) << ((i & 1) * 8)
	}

	hashStr := strconv.FormatUint(uint64(hash), 10)
	if len(hashStr) > 3 {
		hashStr = hashStr[:3]
	} else if len(hashStr) < 3 {
		hashStr = strings.Repeat("0", 3-len(hashStr)) + hashStr
	}
	return hashStr
}

// GetMachineID hashes the first universally administered MAC address with the pid.
func GetMachineID() string {
	interfaces, err := net.Interfaces()
	if err == nil {
		for _, i := range interfaces {
			if i.Flags&net.FlagUp != 0 && !bytes.Equal(i.HardwareAddr, nil) {
				// Skip locally administered addresses
				if i.HardwareAddr[0]&2 == 2 {
					continue
				}
				return HashMacAddressPid(i.HardwareAddr.String())
			}
		}
	}
	return "0"
}

// GenUniqueID packs machine id, a 10 hex digit timestamp and a 3 hex digit
// counter into a positive int64.
func GenUniqueID(machineID string, timestamp int64, counter int64) (int64, error) {
	timestampHex := strconv.FormatInt(timestamp, 16)
	if len(timestampHex) > 10 {
		timestampHex = timestampHex[:10]
	} else if len(timestampHex) < 10 {
		timestampHex = strings.Repeat("0", 10-len(timestampHex)) + timestampHex
	}

	counterHex := strconv.FormatInt(counter, 16)
	if len(counterHex) > 3 {
		counterHex = counterHex[:3]
	} else if len(counterHex) < 3 {
		counterHex = strings.Repeat("0", 3-len(counterHex)) + counterHex
	}

	uniqueID, err := strconv.ParseUint(machineID+timestampHex+counterHex, 16, 64)
	if err != nil {
		return 0, err
	}
	return int64(uniqueID & 0x7FFFFFFFFFFFFFFF), nil
}
