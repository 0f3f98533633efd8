package feed

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is a wire encoding for feed payloads.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// ParseCodec parses a codec name. The empty string selects JSON.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return CodecJSON, nil
	case "msgpack", "mp":
		return CodecMsgpack, nil
	}
	return "", fmt.Errorf("feed: unknown codec %q", s)
}

// ContentType returns the MIME type of the codec.
func (c Codec) ContentType() string {
	if c == CodecMsgpack {
		return contentTypeMsgpack
	}
	return contentTypeJSON
}

// Marshal encodes v.
func (c Codec) Marshal(v any) ([]byte, error) {
	if c == CodecMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data into v.
func (c Codec) Unmarshal(data []byte, v any) error {
	if c == CodecMsgpack {
		return msgpack.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// requestCodec picks the codec from ?codec= or, failing that, the Accept
// header.
func requestCodec(r *http.Request) (Codec, error) {
	if q := r.URL.Query().Get("codec"); q != "" {
		return ParseCodec(q)
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case contentTypeMsgpack, "application/x-msgpack":
			return CodecMsgpack, nil
		case contentTypeJSON:
			return CodecJSON, nil
		}
	}
	return CodecJSON, nil
}
