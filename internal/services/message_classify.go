package services

import (
	"strings"

	types "github.com/atendoteam/atendo-backend/internal/domain"
)

// MediaDescriptor is the provider-agnostic shape of an attached media file.
type MediaDescriptor struct {
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
}

// InboundPayload is the normalized body of one provider event as handed to
// the upsert engine. The wire format of the provider is not modeled here;
// the ingestion caller maps into this shape.
type InboundPayload struct {
	Body       string                 `json:"body"`
	Caption    string                 `json:"caption"`
	Media      *MediaDescriptor       `json:"media,omitempty"`
	Timestamp  string                 `json:"timestamp"`
	InstanceID string                 `json:"instance_id"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

type payloadClass int

const (
	payloadText payloadClass = iota
	payloadMedia
	payloadUnknown
)

// classifyPayload is total over payload shapes: media wins when a usable
// media descriptor is present, then text when a non-empty body is present,
// otherwise unknown.
func classifyPayload(p InboundPayload) payloadClass {
	if p.Media != nil && (p.Media.Kind != "" || p.Media.URL != "") {
		return payloadMedia
	}
	if strings.TrimSpace(p.Body) != "" {
		return payloadText
	}
	return payloadUnknown
}

// messageTypeFor maps the classification onto the closed storage enum.
// Unrecognized media kinds store as DOCUMENT.
func messageTypeFor(class payloadClass, media *MediaDescriptor) types.MessageType {
	if class != payloadMedia {
		return types.MessageTypeText
	}
	kind := ""
	if media != nil {
		kind = strings.ToLower(strings.TrimSpace(media.Kind))
	}
	switch kind {
	case "image", "sticker":
		return types.MessageTypeImage
	case "video":
		return types.MessageTypeVideo
	case "audio", "ptt", "voice":
		return types.MessageTypeAudio
	default:
		return types.MessageTypeDocument
	}
}

// contentFor derives the stored content: the text body when present, else a
// human-readable placeholder.
func contentFor(class payloadClass, p InboundPayload) string {
	if body := strings.TrimSpace(p.Body); body != "" {
		return body
	}
	switch class {
	case payloadMedia:
		kind := ""
		if p.Media != nil {
			kind = strings.ToLower(strings.TrimSpace(p.Media.Kind))
		}
		if kind == "" {
			kind = "document"
		}
		return "[" + kind + "]"
	case payloadUnknown:
		return "[Unsupported message]"
	default:
		return "[Message]"
	}
}

// truncateRunes bounds a string to max runes without splitting a rune.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
