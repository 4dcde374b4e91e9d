package stringutil

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ToJSONString returns the indented JSON representation of v.
func ToJSONString(v interface{}) (string, error) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(bytes), nil
}
