package service

import (
	"time"

	"github.com/prodair/fieldinstall/internal/domain"
)

// Assemble builds a record from form input. It does no validation and has no
// side effects; the record carries the operator's name as its user id and
// its timestamp in UTC.
func Assemble(
	form domain.Form,
	loc *domain.Location,
	photos, photoNames []string,
	mat domain.MaterialUsage,
	user domain.User,
	now time.Time,
	id string,
) *domain.Installation {
	if photos == nil {
		photos = []string{}
	}
	material := mat
	return &domain.Installation{
		ID:           id,
		CoffretName:  form.CoffretName,
		CoffretCode:  form.CoffretCode,
		Zone:         form.Zone,
		DeviceEUI:    form.DeviceEUI,
		AppEUI:       form.AppEUI,
		AppKey:       form.AppKey,
		Photos:       photos,
		PhotoNames:   photoNames,
		Location:     loc,
		MaterialUsed: &material,
		Timestamp:    now.UTC(),
		UserID:       user.Name,
	}
}
