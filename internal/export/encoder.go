package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Format selects an export flavour.
type Format string

const (
	FormatCSV   Format = "csv"   // Generic CSV
	FormatWigle Format = "wigle" // Upload-service CSV with the metadata pre-header
)

// ErrUnknownFormat is returned for format names other than csv and wigle.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatWigle:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Filename is the name a session is uploaded and downloaded under.
func Filename(sessionID int64) string {
	return fmt.Sprintf("wardriver_session_%d.csv", sessionID)
}

// Encoder renders observations. It holds only the device metadata and is safe
// for concurrent use.
type Encoder struct {
	metadata Metadata
}

// NewEncoder creates an Encoder for the device described by metadata.
func NewEncoder(metadata Metadata) *Encoder {
	return &Encoder{metadata: metadata}
}

// Metadata returns the cached device metadata.
func (e *Encoder) Metadata() Metadata {
	return e.metadata
}

// Encode writes observations in the given format.
func (e *Encoder) Encode(w io.Writer, format Format, observations []wifi.ObservationView) error {
	switch format {
	case FormatCSV:
		return e.EncodeCSV(w, observations)
	case FormatWigle:
		return e.EncodeWigle(w, observations)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// EncodeCSV writes the header followed by one row per observation, in order.
func (e *Encoder) EncodeCSV(w io.Writer, observations []wifi.ObservationView) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(Record{}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range observations {
		if err := enc.Encode(NewRecord(&observations[i])); err != nil {
			return fmt.Errorf("writing observation %d: %w", observations[i].ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// EncodeWigle writes the metadata pre-header and then the generic CSV body.
func (e *Encoder) EncodeWigle(w io.Writer, observations []wifi.ObservationView) error {
	if _, err := io.WriteString(w, e.metadata.PreHeader()+"\n"); err != nil {
		return fmt.Errorf("writing pre-header: %w", err)
	}
	return e.EncodeCSV(w, observations)
}

// Decoder reads rows written by EncodeCSV, or by earlier versions of the
// logger, one at a time.
type Decoder struct {
	cr  *csv.Reader
	dec *csvutil.Decoder
}

// NewDecoder reads the header line from r and prepares to decode rows.
// Any pre-header must already be consumed.
func NewDecoder(r io.Reader) (*Decoder, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.LazyQuotes = true // earlier versions wrote SSIDs unquoted

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return &Decoder{cr: cr, dec: dec}, nil
}

// Decode reads the next row. It returns io.EOF at the end of input.
func (d *Decoder) Decode(rec *Record) error {
	return d.dec.Decode(rec)
}

// Line returns the line number of the most recently decoded row.
func (d *Decoder) Line() int {
	line, _ := d.cr.FieldPos(0)
	return line
}
