package drafts

import (
	"encoding/json"
	"strings"

	"github.com/mahuwo/mahuwo-backend/pkg/config"
)

const widgetResourceType = "video"

// WidgetResult is the callback payload of the hosted video upload widget.
type WidgetResult struct {
	Event string          `json:"event,omitempty"`
	Info  *WidgetInfo     `json:"info,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// WidgetInfo carries the uploaded asset details.
type WidgetInfo struct {
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
}

// usable reports whether the callback carries an uploaded asset.
func (r WidgetResult) usable() bool {
	if hasWidgetError(r.Error) {
		return false
	}
	return r.Info != nil && strings.TrimSpace(r.Info.SecureURL) != ""
}

func hasWidgetError(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "" && v != "null" && v != "false" && v != `""`
}

// WidgetOptions configures the hosted video upload widget for one opening.
type WidgetOptions struct {
	CloudName        string   `json:"cloudName"`
	UploadPreset     string   `json:"uploadPreset"`
	MaxVideoFileSize int64    `json:"maxVideoFileSize"`
	ResourceType     string   `json:"resourceType"`
	MaxFiles         int      `json:"maxFiles"`
	AllowedFormats   []string `json:"allowedFormats"`
}

func newWidgetOptions(cfg config.VideoWidgetConfig, remaining int) WidgetOptions {
	formats := make([]string, 0, len(cfg.AllowedFormats))
	for _, f := range cfg.AllowedFormats {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return WidgetOptions{
		CloudName:        cfg.CloudName,
		UploadPreset:     cfg.UploadPreset,
		MaxVideoFileSize: cfg.MaxVideoFileSize,
		ResourceType:     widgetResourceType,
		MaxFiles:         remaining,
		AllowedFormats:   formats,
	}
}
