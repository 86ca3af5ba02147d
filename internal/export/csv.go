package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prodair/fieldinstall/internal/domain"
)

// Header is the CSV/XLSX column row.
var Header = []string{
	"Date/Heure",
	"Utilisateur",
	"Nom du Coffret",
	"Code du Coffret",
	"Zone",
	"Device EUI",
	"App EUI",
	"App Key",
	"Latitude",
	"Longitude",
	"Précision GPS (m)",
	"Nombre de Photos",
	"Noms des Photos",
	"Cosse Electrique (unités)",
	"Embouts à sertir (unités)",
	"Cosse tubulaire (unités)",
	"Collier de serrage (unités)",
	"Cable de 25 mm (m)",
	"Cable de 16 mm (m)",
	"Cable de 10 mm (m)",
	"Total équipements (unités)",
	"Total câbles (m)",
}

// Row renders one record as the CSV cells, in Header order.
func (f *Formatter) Row(rec *domain.Installation) []string {
	lat, lng, acc := Unavailable, Unavailable, Unavailable
	if rec.Location != nil {
		lat = coordinate(rec.Location.Latitude)
		lng = coordinate(rec.Location.Longitude)
	}
	if m, ok := accuracyMeters(rec.Location); ok {
		acc = strconv.FormatInt(m, 10)
	}

	photoNames := NoPhoto
	if names := f.photoNamesFor(rec); len(names) > 0 {
		photoNames = strings.Join(names, "; ")
	}

	mat := materialOrZero(rec)
	return []string{
		f.timestamp(rec.Timestamp),
		rec.UserID,
		rec.CoffretName,
		rec.CoffretCode,
		rec.Zone,
		rec.DeviceEUI,
		rec.AppEUI,
		rec.AppKey,
		lat,
		lng,
		acc,
		strconv.Itoa(len(rec.Photos)),
		photoNames,
		strconv.Itoa(mat.CosseElectrique),
		strconv.Itoa(mat.EmboutsASertir),
		strconv.Itoa(mat.CosseTubulaire),
		strconv.Itoa(mat.CollierDeSerrage),
		number(mat.Cable25mm),
		number(mat.Cable16mm),
		number(mat.Cable10mm),
		strconv.Itoa(mat.TotalUnits()),
		mat.TotalCable().StringFixed(1),
	}
}

// WriteCSV writes the header and one row per record. Fields are quoted per
// RFC 4180 whenever they contain a delimiter, quote or line break.
func (f *Formatter) WriteCSV(w io.Writer, records []*domain.Installation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(f.Row(rec)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func (f *Formatter) CSV(records []*domain.Installation) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
