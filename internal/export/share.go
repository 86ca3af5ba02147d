package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/prodair/fieldinstall/internal/domain"
)

const (
	shareBaseURL = "https://wa.me/"
	mapsBaseURL  = "https://www.google.com/maps?q="
)

// MapURL links to the position on Google Maps.
func MapURL(loc *domain.Location) string {
	return mapsBaseURL + number(loc.Latitude) + "," + number(loc.Longitude)
}

// ShareMessage renders the summary sent to the supervisor.
func (f *Formatter) ShareMessage(rec *domain.Installation) string {
	var b strings.Builder

	b.WriteString("🔧 *Nouvelle Installation LoRa - Prod'Air*\n\n")

	b.WriteString("📋 *Détails du Coffret:*\n")
	fmt.Fprintf(&b, "• Nom: %s\n", rec.CoffretName)
	fmt.Fprintf(&b, "• Code: %s\n", rec.CoffretCode)
	fmt.Fprintf(&b, "• Zone: %s\n\n", rec.Zone)

	b.WriteString("🔧 *Configuration Technique:*\n")
	fmt.Fprintf(&b, "• Device EUI: %s\n", rec.DeviceEUI)
	fmt.Fprintf(&b, "• App EUI: %s\n", rec.AppEUI)
	fmt.Fprintf(&b, "• App Key: %s\n\n", rec.AppKey)

	b.WriteString("📍 *Localisation:*\n")
	if loc := rec.Location; loc != nil {
		acc := "?"
		if m, ok := accuracyMeters(loc); ok {
			acc = fmt.Sprintf("%d", m)
		}
		fmt.Fprintf(&b, "📍 Position GPS: %s, %s\n", coordinate(loc.Latitude), coordinate(loc.Longitude))
		fmt.Fprintf(&b, "🎯 Précision: ±%sm\n", acc)
		fmt.Fprintf(&b, "🗺️ Voir sur carte: %s\n\n", MapURL(loc))
	} else {
		b.WriteString("📍 Position GPS non disponible\n\n")
	}

	if m := rec.MaterialUsed; m != nil {
		b.WriteString("📦 *Matériel consommé:*\n")
		fmt.Fprintf(&b, "• Cosse Electrique: %d unités\n", m.CosseElectrique)
		fmt.Fprintf(&b, "• Embouts à sertir: %d unités\n", m.EmboutsASertir)
		fmt.Fprintf(&b, "• Cosse tubulaire: %d unités\n", m.CosseTubulaire)
		fmt.Fprintf(&b, "• Collier de serrage: %d unités\n", m.CollierDeSerrage)
		fmt.Fprintf(&b, "• Cable de 25 mm: %sm\n", number(m.Cable25mm))
		fmt.Fprintf(&b, "• Cable de 16 mm: %sm\n", number(m.Cable16mm))
		fmt.Fprintf(&b, "• Cable de 10 mm: %sm\n", number(m.Cable10mm))
		fmt.Fprintf(&b, "• *Total:* %d équipements, %sm de câbles\n\n", m.TotalUnits(), m.TotalCable().StringFixed(1))
	} else {
		b.WriteString("📦 Aucun matériel renseigné\n\n")
	}

	fmt.Fprintf(&b, "📅 Date: %s\n", f.timestamp(rec.Timestamp))
	fmt.Fprintf(&b, "👤 Installé par: %s\n\n", rec.UserID)

	switch n := len(rec.Photos); n {
	case 0:
		b.WriteString("📷 Aucune photo\n\n")
	case 1:
		b.WriteString("📷 1 photo d'installation\n\n")
	default:
		fmt.Fprintf(&b, "📷 %d photos d'installation\n\n", n)
	}

	b.WriteString("---\n*Hadirate Al Anwar - Installation Compteurs LoRa*")
	return b.String()
}

// ShareURL embeds the percent-encoded message in a wa.me link.
func (f *Formatter) ShareURL(rec *domain.Installation) string {
	return shareBaseURL + f.recipient + "?text=" + encodeComponent(f.ShareMessage(rec))
}

// encodeComponent percent-encodes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
