package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

var errEmptyBody = errors.New("el cuerpo de la solicitud está vacío")

// BindNestedOrFlat decodes the JSON body into obj. Clients may wrap the fields
// under the resource key, as in {"sale": {"lot_id": 1}}, or send them flat.
// A body that carries the key always decodes from it, even if its content is bad.
// The body is restored so later reads still see it.
func BindNestedOrFlat(c *gin.Context, key string, obj any) error {
	var body []byte
	if c.Request.Body != nil {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			return err
		}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}

	var envelope map[string]json.RawMessage
	if json.Unmarshal(body, &envelope) == nil {
		if nested, ok := envelope[key]; ok {
			return json.Unmarshal(nested, obj)
		}
	}
	return json.Unmarshal(body, obj)
}
