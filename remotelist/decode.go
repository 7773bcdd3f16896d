package remotelist

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrUnexpectedShape is returned for bodies that are neither a JSON array nor an object with a data array.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Decode accepts both shapes the backend answers with: a bare JSON array, or
// an object whose "data" field is the array.
func Decode(body []byte) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON response")
	}

	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		return root.Array(), nil
	case root.IsObject():
		data := root.Get("data")
		if data.IsArray() {
			return data.Array(), nil
		}
	}
	return nil, ErrUnexpectedShape
}
