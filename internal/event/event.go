// Package event turns upload notifications into object references. Both the classic
// S3 notification payload and the EventBridge "Object Created" payload are accepted.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

var ErrInvalidEvent = errors.New("invalid upload event")

// ObjectRef identifies the uploaded object.
type ObjectRef struct {
	Bucket    string `json:"bucket" validate:"required"`
	Key       string `json:"key" validate:"required"`
	ETag      string `json:"etag,omitempty"`
	Sequencer string `json:"sequencer,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// PageRef points at one page that is ready for the next pipeline step.
type PageRef struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	PageNum int    `json:"page_num"`
}

// DedupeID identifies one version of the object for duplicate detection.
func (r ObjectRef) DedupeID() string {
	version := r.ETag
	if version == "" {
		version = r.Sequencer
	}
	if version == "" {
		return r.Bucket + "/" + r.Key
	}
	return r.Bucket + "/" + r.Key + "@" + version
}

// eventBridgeDetail is the detail section of an EventBridge S3 "Object Created" event.
type eventBridgeDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key       string `json:"key"`
		Size      int64  `json:"size"`
		ETag      string `json:"etag"`
		Sequencer string `json:"sequencer"`
	} `json:"object"`
	Reason string `json:"reason"`
}

type envelope struct {
	Records json.RawMessage `json:"Records"`
	Detail  json.RawMessage `json:"detail"`
}

// Parse extracts the object reference from an S3 notification or EventBridge payload.
func Parse(payload []byte) (ObjectRef, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ObjectRef{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch {
	case len(env.Records) > 0 && string(env.Records) != "null":
		return parseS3Notification(payload)
	case len(env.Detail) > 0 && string(env.Detail) != "null":
		return parseEventBridge(payload)
	}
	return ObjectRef{}, fmt.Errorf("%w: neither Records nor detail present", ErrInvalidEvent)
}

func parseS3Notification(payload []byte) (ObjectRef, error) {
	var s3Event events.S3Event
	if err := json.Unmarshal(payload, &s3Event); err != nil {
		return ObjectRef{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if len(s3Event.Records) == 0 {
		return ObjectRef{}, fmt.Errorf("%w: no records", ErrInvalidEvent)
	}

	record := s3Event.Records[0].S3
	ref := ObjectRef{
		Bucket:    record.Bucket.Name,
		Key:       unescapeKey(record.Object.Key),
		ETag:      record.Object.ETag,
		Sequencer: record.Object.Sequencer,
		Size:      record.Object.Size,
	}
	return ref, validate(ref)
}

func parseEventBridge(payload []byte) (ObjectRef, error) {
	var cwEvent events.CloudWatchEvent
	if err := json.Unmarshal(payload, &cwEvent); err != nil {
		return ObjectRef{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var detail eventBridgeDetail
	if err := json.Unmarshal(cwEvent.Detail, &detail); err != nil {
		return ObjectRef{}, fmt.Errorf("%w: bad detail: %v", ErrInvalidEvent, err)
	}

	ref := ObjectRef{
		Bucket:    detail.Bucket.Name,
		Key:       detail.Object.Key,
		ETag:      detail.Object.ETag,
		Sequencer: detail.Object.Sequencer,
		Size:      detail.Object.Size,
	}
	return ref, validate(ref)
}

func validate(ref ObjectRef) error {
	if ref.Bucket == "" {
		return fmt.Errorf("%w: missing bucket name", ErrInvalidEvent)
	}
	if ref.Key == "" {
		return fmt.Errorf("%w: missing object key", ErrInvalidEvent)
	}
	return nil
}

// unescapeKey decodes a form encoded notification key: spaces arrive as '+'. A '%' that
// does not start a valid escape is kept as is.
func unescapeKey(raw string) string {
	if key, err := url.QueryUnescape(raw); err == nil {
		return key
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(raw) && isHex(raw[i+1]) && isHex(raw[i+2]):
			v, _ := strconv.ParseUint(raw[i+1:i+3], 16, 8)
			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
