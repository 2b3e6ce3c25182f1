package validators

import (
	"errors"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/mahuwo/mahuwo-backend/pkg/errors"
)

// multipartOverhead leaves room for boundaries and headers so an oversized
// file still reaches the caller's own size check.
const multipartOverhead = 1 << 20

// FormFile is a streamed multipart file part.
type FormFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// OpenMultipartFile streams the first file part named field. The request body
// is capped at maxBytes plus overhead; the part must be consumed before the
// handler returns.
func OpenMultipartFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*FormFile, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart form required")
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
				WithDetails(map[string]string{"field": field})
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeUploadLimit, err, "request body too large")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
		}
		if part.FormName() != field || strings.TrimSpace(part.FileName()) == "" {
			continue
		}
		return &FormFile{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Body:        part,
		}, nil
	}
}
