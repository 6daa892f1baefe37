package extract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/submit_extraction.json
var resultSchemaJSON string

var resultSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("extract: invalid embedded schema: %v", err))
	}
	return s
}()

// DecodeResult validates raw JSON against the submit_extraction schema and
// decodes it. Markdown code fences around the payload are tolerated.
func DecodeResult(raw []byte) (*Result, error) {
	raw = stripFences(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResult)
	}

	res, err := resultSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedResult, strings.Join(msgs, "; "))
	}

	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if out.Fields == nil {
		out.Fields = []RawField{}
	}
	return &out, nil
}

func stripFences(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if !bytes.HasPrefix(raw, []byte("```")) {
		return raw
	}
	raw = bytes.TrimPrefix(raw, []byte("```"))
	raw = bytes.TrimPrefix(raw, []byte("json"))
	raw = bytes.TrimSuffix(bytes.TrimSpace(raw), []byte("```"))
	return bytes.TrimSpace(raw)
}
