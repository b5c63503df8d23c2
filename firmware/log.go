package firmware

import (
	"github.com/fxamacker/cbor/v2"
)

// LogRecord is the chip's CBOR-encoded diagnostic log, retrieved via
// Get_Log_Req. Exact field set is chip-firmware defined; this is the
// subset useful for host-side diagnostics.
type LogRecord struct {
	UptimeSeconds uint32            `cbor:"uptime_s"`
	LastResetCode uint8             `cbor:"reset_code"`
	Counters      map[string]uint32 `cbor:"counters"`
}

// DecodeLog parses a Get_Log_Req response payload.
func DecodeLog(raw []byte) (LogRecord, error) {
	var rec LogRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return LogRecord{}, err
	}
	return rec, nil
}
