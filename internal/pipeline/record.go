package pipeline

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Record is the unit a producer puts into one ring slot.
type Record struct {
	Producer string    `msgpack:"p"`
	Seq      uint64    `msgpack:"s"`
	At       time.Time `msgpack:"t"`
	Payload  []byte    `msgpack:"d"`
}

// Encode returns the msgpack form of r.
func Encode(r Record) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode record %d: %w", r.Seq, err)
	}
	return data, nil
}

// Decode parses one record. A slot that was truncated on write fails here.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("pipeline: decode record: %w", err)
	}
	return r, nil
}

// payload returns n bytes derived from seq so consumers can verify content.
func payload(seq uint64, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(seq + uint64(i))
	}
	return p
}

// Verify reports whether r carries the payload its producer generated.
func (r Record) Verify() bool {
	for i, b := range r.Payload {
		if b != byte(r.Seq+uint64(i)) {
			return false
		}
	}
	return true
}
