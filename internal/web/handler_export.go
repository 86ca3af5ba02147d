package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prodair/fieldinstall/internal/domain"
	"github.com/prodair/fieldinstall/internal/export"
)

type exportFormat string

const (
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
	formatPDF  exportFormat = "pdf"
)

func (s *Server) handleExport(format exportFormat) userHandler {
	return func(w http.ResponseWriter, r *http.Request, _ *domain.User) {
		records, err := s.installations.List(r.Context())
		if err != nil {
			s.writeServiceError(w, "export installations", err)
			return
		}

		now := s.now()
		var (
			data        []byte
			contentType string
		)
		switch format {
		case formatCSV:
			data, err = s.formatter.CSV(records)
			contentType = export.ContentTypeCSV
		case formatXLSX:
			data, err = s.formatter.XLSX(records)
			contentType = export.ContentTypeXLSX
		case formatPDF:
			data, err = s.formatter.PDF(records, now)
			contentType = export.ContentTypePDF
		}
		if err != nil {
			s.logger.Error("export failed", "format", format, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to export installations")
			return
		}

		s.metrics.Export(string(format))
		s.logger.Info("installations exported", "format", format, "records", len(records))

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", s.formatter.Filename(string(format), now)))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if _, err := w.Write(data); err != nil {
			s.logger.Error("write export failed", "format", format, "error", err)
		}
	}
}
