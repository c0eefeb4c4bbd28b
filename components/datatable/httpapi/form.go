package httpapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// FormPayload converts a form-encoded table page submission into the JSON
// body the executor decodes. Other content types pass through untouched and
// report form as false.
func FormPayload(contentType string, body []byte) (payload []byte, form bool, err error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != formContentType {
		return body, false, nil
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", errBadBody, err)
	}
	fields := map[string]any{}
	for _, name := range []string{"term", "key", "move"} {
		if values.Has(name) {
			fields[name] = values.Get(name)
		}
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, true, fmt.Errorf("%w: page %q is not a number", errBadBody, raw)
		}
		fields["page"] = page
	}
	payload, err = json.Marshal(fields)
	if err != nil {
		return nil, true, err
	}
	return payload, true, nil
}

// TablePagePath is where a form submission lands after a table operation.
func TablePagePath(basePath, table string) string {
	return strings.TrimSuffix(basePath, "/") + "/tables/" + url.PathEscape(table)
}
