package cache

import (
	"net/url"
	"strconv"
)

// ListKey identifies one page of a collection listing. Query parameters are
// encoded in key order so equivalent URLs share an entry.
func ListKey(collection string, gen int64, raw url.Values) string {
	return collection + ":list:g" + strconv.FormatInt(gen, 10) + "?" + raw.Encode()
}
