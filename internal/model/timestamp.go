package model

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is an instant read from a Unix epoch number.
//
// Reports always store epochs, never formatted dates, so Timestamp keeps the
// epoch it was built from and emits that same number when serialized.
// The embedded time.Time is in UTC.
type Timestamp struct {
	time.Time

	epoch float64
}

// NewTimestamp converts a Unix epoch in seconds, possibly fractional,
// into a Timestamp.
func NewTimestamp(epoch float64) Timestamp {
	sec, frac := math.Modf(epoch)
	nsec := math.Round(frac * 1e9)
	return Timestamp{
		Time:  time.Unix(int64(sec), int64(nsec)).UTC(),
		epoch: epoch,
	}
}

// TimestampFromTime converts t into a Timestamp. The epoch is derived from
// t with nanosecond precision.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{
		Time:  t.UTC(),
		epoch: float64(t.Unix()) + float64(t.Nanosecond())/1e9,
	}
}

// Epoch returns the Unix epoch in seconds.
func (t Timestamp) Epoch() float64 {
	return t.epoch
}

// String formats the instant as RFC 3339 in UTC.
func (t Timestamp) String() string {
	return t.Time.Format(time.RFC3339Nano)
}

// MarshalJSON emits the epoch number.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(t.epoch, 'f', -1, 64)), nil
}

// UnmarshalJSON reads an epoch number.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	epoch, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = NewTimestamp(epoch)
	return nil
}

// MarshalYAML emits the epoch number.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.epoch, nil
}
