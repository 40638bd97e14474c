package files

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/starford/provtrack/internal/apperr"
	"github.com/starford/provtrack/internal/record"
)

// Offsets into the Neuroscan CNT SETUP header.
const (
	cntPatientOffset    = 121
	cntPatientLen       = 20
	cntDateOffset       = 225
	cntDateLen          = 10
	cntTimeOffset       = 235
	cntTimeLen          = 12
	cntChannelsOffset   = 370
	cntRateOffset       = 376
	cntNumSamplesOffset = 864
	cntHeaderLen        = cntNumSamplesOffset + 4
)

const cntAcquiredLayout = "02/01/06 15:04:05"

// Neuroscan reads the SETUP header of a Neuroscan continuous EEG (.cnt) file.
type Neuroscan struct{}

func (Neuroscan) Inspect(_ context.Context, path string) (record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("neuroscan: open %s: %w", path, err)
	}
	defer f.Close()

	hdr := make([]byte, cntHeaderLen)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("neuroscan: read header %s: %w: %v", path, apperr.ErrMalformed, err)
	}
	return parseCNTHeader(hdr), nil
}

func parseCNTHeader(hdr []byte) record.Record {
	le := binary.LittleEndian
	nchannels := int(le.Uint16(hdr[cntChannelsOffset:]))
	rate := int(le.Uint16(hdr[cntRateOffset:]))
	nsamples := int(le.Uint32(hdr[cntNumSamplesOffset:]))

	out := record.Record{
		record.FieldSubject:           cString(hdr[cntPatientOffset : cntPatientOffset+cntPatientLen]),
		record.FieldDimensions:        []any{nchannels, nsamples},
		record.FieldSamplingFrequency: rate,
		record.FieldModality:          "EEG",
	}

	date := cString(hdr[cntDateOffset : cntDateOffset+cntDateLen])
	clock := cString(hdr[cntTimeOffset : cntTimeOffset+cntTimeLen])
	if acquired, err := time.ParseInLocation(cntAcquiredLayout, date+" "+clock, time.Local); err == nil {
		out[record.FieldAcquired] = acquired
	}

	if rate > 0 {
		out[record.FieldDuration] = time.Duration(int64(nsamples) * int64(time.Second) / int64(rate))
	}
	return out
}

// cString returns the text before the first NUL, without surrounding blanks.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
