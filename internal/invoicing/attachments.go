package invoicing

import (
	"encoding/base64"
	"errors"
	"strings"

	"constructerp/internal/common"
)

// BinaryAttachmentFields are never persisted on an attachment record.
var BinaryAttachmentFields = []string{"file", "file_data", "data_url", "base64", "content", "blob"}

var ErrInvalidAttachmentPayload = errors.New("attachment payload is not valid base64")

// AttachmentPayload is a decoded binary attachment body.
type AttachmentPayload struct {
	Data        []byte
	ContentType string
}

// NormalizeAttachments reads an attachments value as a list of metadata records.
// Non-arrays become an empty list and non-object entries are dropped.
func NormalizeAttachments(v interface{}) []map[string]interface{} {
	out := []map[string]interface{}{}
	switch items := v.(type) {
	case []map[string]interface{}:
		out = append(out, items...)
	case []interface{}:
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// ExtractAttachmentPayload decodes the inline binary body of an attachment, if it has one.
// data_url values ("data:<type>;base64,<body>") carry their own content type.
func ExtractAttachmentPayload(att map[string]interface{}) (*AttachmentPayload, error) {
	contentType := common.StringValue(firstPresent(att, "content_type", "file_type", "type", "mime_type"))

	if dataURL := common.StringValue(att["data_url"]); strings.HasPrefix(dataURL, "data:") {
		header, body, found := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
		if !found {
			return nil, ErrInvalidAttachmentPayload
		}
		if mediaType, _, _ := strings.Cut(header, ";"); mediaType != "" {
			contentType = mediaType
		}
		return decodePayload(body, contentType)
	}

	for _, key := range []string{"file_data", "base64", "content"} {
		if s := common.StringValue(att[key]); s != "" {
			return decodePayload(s, contentType)
		}
	}
	return nil, nil
}

func decodePayload(body, contentType string) (*AttachmentPayload, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, ErrInvalidAttachmentPayload
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &AttachmentPayload{Data: data, ContentType: contentType}, nil
}

// StripBinaryFields returns a copy of att without any inline binary body.
func StripBinaryFields(att map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(att))
	for k, v := range att {
		out[k] = v
	}
	for _, k := range BinaryAttachmentFields {
		delete(out, k)
	}
	return out
}

// AttachmentFileName picks a file name for an uploaded attachment.
func AttachmentFileName(att map[string]interface{}) string {
	name := common.StringValue(firstPresent(att, "file_name", "name", "filename"))
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if name == "" {
		return "attachment"
	}
	return name
}
