package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/prodair/fieldinstall/internal/capture"
	"github.com/prodair/fieldinstall/internal/domain"
)

const (
	maxPhotoSize  = 50 * 1024 * 1024 // 50 MB per file
	maxUploadSize = 4 * maxPhotoSize
)

var errUnsupportedFormat = errors.New("unsupported image format")

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type photoResponse struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	DataURL string `json:"dataUrl"`
}

type photoErrorResponse struct {
	Index int    `json:"index"`
	File  string `json:"file"`
	Error string `json:"error"`
}

type uploadResponse struct {
	Photos []photoResponse      `json:"photos"`
	Errors []photoErrorResponse `json:"errors"`
}

// handleAddPhotos accepts one or more "image" parts. Files that are not
// images or fail to decode are reported individually; the request fails
// only when nothing could be added.
func (s *Server) handleAddPhotos(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	headers := r.MultipartForm.File["image"]
	if len(headers) == 0 {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}

	resp := uploadResponse{Photos: []photoResponse{}, Errors: []photoErrorResponse{}}
	var (
		files   []capture.RawFile
		indexes []int
	)
	for i, fh := range headers {
		data, err := s.readPart(fh)
		if err == nil {
			if _, ok := allowedImageMIME(data); !ok {
				err = errUnsupportedFormat
			}
		}
		if err != nil {
			resp.Errors = append(resp.Errors, photoErrorResponse{Index: i, File: fh.Filename, Error: err.Error()})
			continue
		}
		files = append(files, capture.RawFile{Name: fh.Filename, Data: data})
		indexes = append(indexes, i)
	}

	if len(files) > 0 {
		added, errs := s.installations.AddPhotos(r.Context(), r.FormValue("coffretCode"), files)
		for _, p := range added {
			resp.Photos = append(resp.Photos, photoResponse{Name: p.Name, Size: p.Size, DataURL: p.DataURL})
		}
		for _, err := range errs {
			var derr *capture.PhotoDecodeError
			if errors.As(err, &derr) {
				resp.Errors = append(resp.Errors, photoErrorResponse{
					Index: indexes[derr.Index],
					File:  derr.File,
					Error: derr.Err.Error(),
				})
			}
		}
	} else {
		s.metrics.Photos(0, len(resp.Errors))
	}

	status := http.StatusOK
	if len(resp.Photos) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp, s.logger)
}

func (s *Server) readPart(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxPhotoSize {
		return nil, fmt.Errorf("file larger than %d bytes", maxPhotoSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer closeWithLog(f, "upload file", s.logger)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func (s *Server) handleRemovePhoto(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid photo index")
		return
	}
	if err := s.installations.RemovePhoto(r.Context(), index); err != nil {
		s.writeServiceError(w, "remove photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPhotos(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	s.installations.ClearPhotos(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleGetDevicePhoto serves the device copy of a captured photo by name.
func (s *Server) handleGetDevicePhoto(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	name := r.PathValue("name")
	reader, mimeType, err := s.installations.DevicePhoto(r.Context(), name)
	if err != nil {
		s.writeServiceError(w, "read photo", err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "name", name, "error", err)
	}
}
