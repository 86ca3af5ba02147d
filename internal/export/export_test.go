package export

import (
	"bytes"
	"encoding/csv"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/prodair/fieldinstall/internal/domain"
)

func newTestFormatter(t *testing.T) *Formatter {
	t.Helper()
	f, err := NewFormatter(time.UTC, "", "MA")
	require.NoError(t, err)
	return f
}

func ptr[T any](v T) *T { return &v }

func fullRecord() *domain.Installation {
	return &domain.Installation{
		ID:          "1700000000000",
		CoffretName: "Coffret Nord",
		CoffretCode: "CF-001",
		Zone:        "Zone A",
		DeviceEUI:   "70B3D57ED0000001",
		AppEUI:      "0000000000000001",
		AppKey:      "2B7E151628AED2A6ABF7158809CF4F3C",
		Photos:      []string{"data:image/jpeg;base64,AAA", "data:image/jpeg;base64,BBB"},
		PhotoNames:  []string{"CF-001_2024-03-05_14h07m09s_1.jpg", "CF-001_2024-03-05_14h07m09s_2.jpg"},
		Location: &domain.Location{
			Latitude:  33.5731,
			Longitude: -7.5898,
			Accuracy:  ptr(12.4),
			Timestamp: 1709647629000,
		},
		MaterialUsed: &domain.MaterialUsage{
			CosseElectrique:  4,
			EmboutsASertir:   8,
			CosseTubulaire:   2,
			CollierDeSerrage: 10,
			Cable25mm:        3,
			Cable16mm:        2.5,
			Cable10mm:        1.2,
		},
		Timestamp: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		UserID:    "tech-1",
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func cell(t *testing.T, header, row []string, name string) string {
	t.Helper()
	for i, h := range header {
		if h == name {
			return row[i]
		}
	}
	t.Fatalf("column %q not found", name)
	return ""
}

func TestCSVHeaderAndRows(t *testing.T) {
	f := newTestFormatter(t)

	data, err := f.CSV([]*domain.Installation{fullRecord(), fullRecord(), fullRecord()})
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	for _, r := range rows[1:] {
		assert.Len(t, r, len(Header))
	}
	assert.NotContains(t, string(data), "\r\n")
}

func TestCSVEmptyHasHeaderOnly(t *testing.T) {
	f := newTestFormatter(t)

	data, err := f.CSV(nil)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestCSVFullRecord(t *testing.T) {
	f := newTestFormatter(t)

	data, err := f.CSV([]*domain.Installation{fullRecord()})
	require.NoError(t, err)
	rows := readCSV(t, data)
	h, r := rows[0], rows[1]

	assert.Equal(t, "05/03/2024 14:07:09", cell(t, h, r, "Date/Heure"))
	assert.Equal(t, "tech-1", cell(t, h, r, "Utilisateur"))
	assert.Equal(t, "33.573100", cell(t, h, r, "Latitude"))
	assert.Equal(t, "-7.589800", cell(t, h, r, "Longitude"))
	assert.Equal(t, "12", cell(t, h, r, "Précision GPS (m)"))
	assert.Equal(t, "2", cell(t, h, r, "Nombre de Photos"))
	assert.Equal(t, "CF-001_2024-03-05_14h07m09s_1.jpg; CF-001_2024-03-05_14h07m09s_2.jpg",
		cell(t, h, r, "Noms des Photos"))
	assert.Equal(t, "24", cell(t, h, r, "Total équipements (unités)"))
	assert.Equal(t, "6.7", cell(t, h, r, "Total câbles (m)"))
}

func TestCSVMaterialRoundTrip(t *testing.T) {
	f := newTestFormatter(t)
	rec := fullRecord()

	data, err := f.CSV([]*domain.Installation{rec})
	require.NoError(t, err)
	rows := readCSV(t, data)
	h, r := rows[0], rows[1]

	ints := map[string]int{
		"Cosse Electrique (unités)":   rec.MaterialUsed.CosseElectrique,
		"Embouts à sertir (unités)":   rec.MaterialUsed.EmboutsASertir,
		"Cosse tubulaire (unités)":    rec.MaterialUsed.CosseTubulaire,
		"Collier de serrage (unités)": rec.MaterialUsed.CollierDeSerrage,
	}
	for col, want := range ints {
		got, err := strconv.Atoi(cell(t, h, r, col))
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}

	floats := map[string]float64{
		"Cable de 25 mm (m)": rec.MaterialUsed.Cable25mm,
		"Cable de 16 mm (m)": rec.MaterialUsed.Cable16mm,
		"Cable de 10 mm (m)": rec.MaterialUsed.Cable10mm,
	}
	for col, want := range floats {
		got, err := strconv.ParseFloat(cell(t, h, r, col), 64)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}
}

func TestCSVLegacyRecord(t *testing.T) {
	f := newTestFormatter(t)
	rec := fullRecord()
	rec.Location = nil
	rec.MaterialUsed = nil
	rec.PhotoNames = nil

	data, err := f.CSV([]*domain.Installation{rec})
	require.NoError(t, err)
	rows := readCSV(t, data)
	h, r := rows[0], rows[1]

	assert.Equal(t, Unavailable, cell(t, h, r, "Latitude"))
	assert.Equal(t, Unavailable, cell(t, h, r, "Longitude"))
	assert.Equal(t, Unavailable, cell(t, h, r, "Précision GPS (m)"))
	assert.Equal(t, "0", cell(t, h, r, "Cosse Electrique (unités)"))
	assert.Equal(t, "0", cell(t, h, r, "Cable de 25 mm (m)"))
	assert.Equal(t, "0", cell(t, h, r, "Total équipements (unités)"))
	assert.Equal(t, "0.0", cell(t, h, r, "Total câbles (m)"))
	assert.Equal(t, "CF-001_2024-03-05_14h07m09s_1.jpg; CF-001_2024-03-05_14h07m09s_2.jpg",
		cell(t, h, r, "Noms des Photos"))
}

func TestCSVNoPhotosAndZeroAccuracy(t *testing.T) {
	f := newTestFormatter(t)
	rec := fullRecord()
	rec.Photos = []string{}
	rec.PhotoNames = nil
	rec.Location.Accuracy = ptr(0.0)

	rows := readCSV(t, mustCSV(t, f, rec))
	h, r := rows[0], rows[1]

	assert.Equal(t, NoPhoto, cell(t, h, r, "Noms des Photos"))
	assert.Equal(t, "0", cell(t, h, r, "Nombre de Photos"))
	assert.Equal(t, Unavailable, cell(t, h, r, "Précision GPS (m)"))
	assert.Equal(t, "33.573100", cell(t, h, r, "Latitude"))
}

func TestCSVQuotesEmbeddedDelimiters(t *testing.T) {
	f := newTestFormatter(t)
	rec := fullRecord()
	rec.CoffretName = `Coffret "Nord", bâtiment 2`

	data := mustCSV(t, f, rec)
	assert.Contains(t, string(data), `"Coffret ""Nord"", bâtiment 2"`)

	rows := readCSV(t, data)
	assert.Equal(t, rec.CoffretName, cell(t, rows[0], rows[1], "Nom du Coffret"))
	assert.Len(t, rows[1], len(Header))
}

func mustCSV(t *testing.T, f *Formatter, recs ...*domain.Installation) []byte {
	t.Helper()
	data, err := f.CSV(recs)
	require.NoError(t, err)
	return data
}

func TestShareMessage(t *testing.T) {
	f := newTestFormatter(t)

	msg := f.ShareMessage(fullRecord())

	assert.Contains(t, msg, "• Code: CF-001")
	assert.Contains(t, msg, "• Device EUI: 70B3D57ED0000001")
	assert.Contains(t, msg, "📍 Position GPS: 33.573100, -7.589800")
	assert.Contains(t, msg, "🎯 Précision: ±12m")
	assert.Contains(t, msg, "https://www.google.com/maps?q=33.5731,-7.5898")
	assert.Contains(t, msg, "• Cable de 16 mm: 2.5m")
	assert.Contains(t, msg, "• *Total:* 24 équipements, 6.7m de câbles")
	assert.Contains(t, msg, "📅 Date: 05/03/2024 14:07:09")
	assert.Contains(t, msg, "📷 2 photos d'installation")
}

func TestShareMessageLegacyRecord(t *testing.T) {
	f := newTestFormatter(t)
	rec := fullRecord()
	rec.Location = nil
	rec.MaterialUsed = nil
	rec.Photos = nil

	msg := f.ShareMessage(rec)

	assert.Contains(t, msg, "Position GPS non disponible")
	assert.Contains(t, msg, "Aucun matériel renseigné")
	assert.Contains(t, msg, "📷 Aucune photo")
	assert.NotContains(t, msg, "google.com/maps")
}

func TestShareURL(t *testing.T) {
	f := newTestFormatter(t)

	link := f.ShareURL(fullRecord())

	require.True(t, strings.HasPrefix(link, "https://wa.me/?text="))
	encoded := strings.TrimPrefix(link, "https://wa.me/?text=")
	assert.NotContains(t, encoded, " ")
	assert.NotContains(t, encoded, "+")

	decoded, err := url.QueryUnescape(encoded)
	require.NoError(t, err)
	assert.Contains(t, decoded, "CF-001")
	assert.Equal(t, f.ShareMessage(fullRecord()), decoded)
}

func TestShareURLWithRecipient(t *testing.T) {
	f, err := NewFormatter(time.UTC, "0612345678", "MA")
	require.NoError(t, err)

	link := f.ShareURL(fullRecord())
	assert.True(t, strings.HasPrefix(link, "https://wa.me/212612345678?text="))
}

func TestNewFormatterRejectsInvalidRecipient(t *testing.T) {
	_, err := NewFormatter(time.UTC, "not a number", "MA")
	assert.Error(t, err)

	_, err = NewFormatter(time.UTC, "12", "MA")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	f := newTestFormatter(t)
	now := time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "installations_prodair_2024-03-05.csv", f.Filename("csv", now))

	tokyo := time.FixedZone("JST", 9*3600)
	f2, err := NewFormatter(tokyo, "", "MA")
	require.NoError(t, err)
	assert.Equal(t, "installations_prodair_2024-03-06.xlsx", f2.Filename("xlsx", now))
}

func TestTimestampUsesFormatterZone(t *testing.T) {
	f, err := NewFormatter(time.FixedZone("WEST", 3600), "", "MA")
	require.NoError(t, err)

	rows := readCSV(t, mustCSV(t, f, fullRecord()))
	assert.Equal(t, "05/03/2024 15:07:09", cell(t, rows[0], rows[1], "Date/Heure"))
}

func TestXLSX(t *testing.T) {
	f := newTestFormatter(t)
	legacy := fullRecord()
	legacy.Location = nil

	data, err := f.XLSX([]*domain.Installation{fullRecord(), legacy})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Coffret Nord", rows[1][2])
	assert.Equal(t, Unavailable, rows[2][8])

	v, err := wb.GetCellValue(xlsxSheet, "N2")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func TestPDF(t *testing.T) {
	f := newTestFormatter(t)
	now := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)

	data, err := f.PDF([]*domain.Installation{fullRecord()}, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	empty, err := f.PDF(nil, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF")))
}
