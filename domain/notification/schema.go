package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/miniquinox/billsync/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Extra keys (type, table, old_record) sent by database webhooks are allowed.
const notifyRequestSchema = `{
	"type": "object",
	"required": ["record"],
	"properties": {
		"record": {
			"type": "object",
			"required": ["name", "email", "company"],
			"properties": {
				"name":    {"type": "string"},
				"email":   {"type": "string"},
				"company": {"type": "string"}
			}
		}
	}
}`

var notifySchema = mustCompileSchema(notifyRequestSchema)

func mustCompileSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("notification: invalid request schema: %v", err))
	}
	return schema
}

// ParseNotifyRequest validates body against the request schema and decodes it.
func ParseNotifyRequest(body []byte) (*NotifyRequest, error) {
	if len(body) == 0 {
		return nil, apperrors.NewInvalidRequestError("request body is empty", nil)
	}

	result, err := notifySchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("request body is not valid JSON", err)
	}

	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return nil, apperrors.NewInvalidRequestError("invalid notification payload: "+strings.Join(problems, "; "), nil)
	}

	var req NotifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, apperrors.NewInvalidRequestError("request body is not valid JSON", err)
	}

	return &req, nil
}
