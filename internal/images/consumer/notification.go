package consumer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	objectDeleteEvent    = "OBJECT_DELETE"
	payloadFormatJSONAPI = "JSON_API_V1"
)

type processResult struct {
	ack  bool
	nack bool
}

type gcsAttributes struct {
	EventType        string
	BucketID         string
	ObjectID         string
	PayloadFormat    string
	OverwrittenByGen string
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:        attrs["eventType"],
		BucketID:         attrs["bucketId"],
		ObjectID:         attrs["objectId"],
		PayloadFormat:    attrs["payloadFormat"],
		OverwrittenByGen: attrs["overwrittenByGeneration"],
	}
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func gcsBucket(p *gcsPayload) string {
	if p == nil {
		return ""
	}
	return p.Bucket
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// decodePayload accepts both raw JSON and the base64 form some push
// configurations deliver.
func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
