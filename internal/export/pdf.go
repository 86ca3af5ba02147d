package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/prodair/fieldinstall/internal/domain"
)

// PDF renders a printable summary: one row per installation, then totals.
func (f *Formatter) PDF(records []*domain.Installation, now time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Installations Compteurs LoRa - Prod'Air", props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Édité le "+f.timestamp(now), props.Text{
			Size:  9,
			Align: align.Right,
			Top:   4,
		}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 8}
	m.AddRow(10,
		text.NewCol(2, "Date", header),
		text.NewCol(3, "Coffret", header),
		text.NewCol(2, "Device EUI", header),
		text.NewCol(2, "Position", header),
		text.NewCol(1, "Photos", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Matériel", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)

	if len(records) == 0 {
		m.AddRow(10, text.NewCol(12, "Aucune installation enregistrée", props.Text{Size: 9}))
	}

	cell := props.Text{Size: 8}
	totalUnits := 0
	totalCable := decimal.Zero
	for _, rec := range records {
		mat := materialOrZero(rec)
		totalUnits += mat.TotalUnits()
		totalCable = totalCable.Add(mat.TotalCable())

		position := "GPS non disponible"
		if rec.Location != nil {
			position = coordinate(rec.Location.Latitude) + ", " + coordinate(rec.Location.Longitude)
		}

		m.AddRow(14,
			col.New(2).Add(
				text.New(f.timestamp(rec.Timestamp), cell),
				text.New(rec.UserID, props.Text{Size: 7, Top: 4}),
			),
			col.New(3).Add(
				text.New(rec.CoffretName, cell),
				text.New(rec.CoffretCode+" - "+rec.Zone, props.Text{Size: 7, Top: 4}),
			),
			text.NewCol(2, rec.DeviceEUI, cell),
			text.NewCol(2, position, cell),
			text.NewCol(1, fmt.Sprintf("%d", len(rec.Photos)), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d u / %s m", mat.TotalUnits(), mat.TotalCable().StringFixed(1)),
				props.Text{Size: 8, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, fmt.Sprintf("%d installation(s)", len(records)), props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, fmt.Sprintf("%d u / %s m", totalUnits, totalCable.StringFixed(1)),
			props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
