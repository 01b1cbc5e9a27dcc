package registry

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// NullToken is returned by Query for anything that is not configured. It is
// a literal token, never an error, so callers can tell "not configured"
// apart from "registry unreadable".
const NullToken = "null"

// Query performs a path-style field lookup against a server entry, e.g.
// Query(file, "github", "source.image"). Missing servers and missing fields
// both yield NullToken. Scalar results are returned bare; compound results
// are returned as their JSON form.
func Query(f *File, id, fieldPath string) string {
	def, ok := f.Get(id)
	if !ok {
		return NullToken
	}

	doc, err := json.Marshal(def)
	if err != nil {
		return NullToken
	}

	res := gjson.GetBytes(doc, fieldPath)
	if !res.Exists() {
		return NullToken
	}
	if res.Type == gjson.String {
		return res.Str
	}
	return res.Raw
}
