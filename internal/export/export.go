// Package export serializes stored installations for download and sharing.
// Every function is a pure read over a snapshot of records.
package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ttacon/libphonenumber"

	"github.com/prodair/fieldinstall/internal/domain"
)

const (
	Unavailable = "Non disponible"
	NoPhoto     = "Aucune photo"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"

	timestampLayout = "02/01/2006 15:04:05"
)

// Formatter renders records in the operator's time zone and, optionally,
// addresses share links to a fixed recipient.
type Formatter struct {
	loc       *time.Location
	recipient string
}

// NewFormatter validates recipient (any national or international form) for
// region and keeps its E.164 digits. An empty recipient yields recipient-less
// share links.
func NewFormatter(loc *time.Location, recipient, region string) (*Formatter, error) {
	if loc == nil {
		loc = time.Local
	}
	f := &Formatter{loc: loc}
	if strings.TrimSpace(recipient) == "" {
		return f, nil
	}

	num, err := libphonenumber.Parse(recipient, region)
	if err != nil {
		return nil, fmt.Errorf("invalid share recipient: %w", err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return nil, fmt.Errorf("invalid share recipient: %q is not a valid number", recipient)
	}
	f.recipient = strings.TrimPrefix(libphonenumber.Format(num, libphonenumber.E164), "+")
	return f, nil
}

// Filename is installations_prodair_{YYYY-MM-DD}.{ext}.
func (f *Formatter) Filename(ext string, now time.Time) string {
	return fmt.Sprintf("installations_prodair_%s.%s", now.In(f.loc).Format("2006-01-02"), ext)
}

func (f *Formatter) timestamp(t time.Time) string {
	return t.In(f.loc).Format(timestampLayout)
}

// materialOrZero substitutes zero quantities for records written before
// material tracking existed.
func materialOrZero(rec *domain.Installation) domain.MaterialUsage {
	if rec.MaterialUsed == nil {
		return domain.MaterialUsage{}
	}
	return *rec.MaterialUsed
}

// photoNamesFor returns the stored names or, for older records, regenerates
// them from the record timestamp and coffret code.
func (f *Formatter) photoNamesFor(rec *domain.Installation) []string {
	if len(rec.PhotoNames) > 0 {
		return rec.PhotoNames
	}
	names := make([]string, len(rec.Photos))
	at := rec.Timestamp.In(f.loc)
	for i := range rec.Photos {
		names[i] = domain.PhotoName(rec.CoffretCode, at, i+1)
	}
	return names
}

func coordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// accuracyMeters treats a missing or zero accuracy as unknown.
func accuracyMeters(loc *domain.Location) (int64, bool) {
	if loc == nil || loc.Accuracy == nil || *loc.Accuracy <= 0 {
		return 0, false
	}
	return int64(math.Round(*loc.Accuracy)), true
}

// number prints a quantity the shortest way: 3, 2.5.
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
