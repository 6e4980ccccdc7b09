// Package replay drives the scanner interfaces from a recorded capture, a
// JSON-lines file with one timestamped Wi-Fi result, BLE advertisement,
// classic device or position fix per line.
package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/radio"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

// Kind is the payload type of a record.
type Kind string

const (
	KindWifi     Kind = "wifi"
	KindBLE      Kind = "ble"
	KindClassic  Kind = "classic"
	KindPosition Kind = "position"
)

// Record is one capture line.
type Record struct {
	Time     time.Time                 `json:"time"`
	Type     Kind                      `json:"type"`
	Wifi     *scanner.WifiResult       `json:"wifi,omitempty"`
	BLE      *scanner.BleAdvertisement `json:"ble,omitempty"`
	Classic  *scanner.ClassicDevice    `json:"classic,omitempty"`
	Position *radio.Position           `json:"position,omitempty"`
}

func (r *Record) validate() error {
	if r.Time.IsZero() {
		return fmt.Errorf("missing time")
	}
	var ok bool
	switch r.Type {
	case KindWifi:
		ok = r.Wifi != nil
	case KindBLE:
		ok = r.BLE != nil
	case KindClassic:
		ok = r.Classic != nil
	case KindPosition:
		ok = r.Position != nil
	default:
		return fmt.Errorf("unknown record type %q", r.Type)
	}
	if !ok {
		return fmt.Errorf("%s record without %s payload", r.Type, r.Type)
	}
	return nil
}

// maxLineSize bounds one capture line.
const maxLineSize = 1 << 20

// Decode reads a capture. Blank lines and lines starting with '#' are
// skipped. Records are returned in time order.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.New(err).
				Component("replay").
				Category(errors.CategoryFileParsing).
				Context("line", lineNo).
				Build()
		}
		if err := rec.validate(); err != nil {
			return nil, errors.New(err).
				Component("replay").
				Category(errors.CategoryValidation).
				Context("line", lineNo).
				Build()
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.New(err).
			Component("replay").
			Category(errors.CategoryFileIO).
			Build()
	}

	slices.SortStableFunc(records, func(a, b Record) int { return a.Time.Compare(b.Time) })
	return records, nil
}

// Load reads a capture file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("replay").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Encode writes records as a capture.
func Encode(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for i := range records {
		if err := records[i].validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := enc.Encode(&records[i]); err != nil {
			return err
		}
	}
	return nil
}
