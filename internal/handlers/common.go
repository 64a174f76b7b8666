// common.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
)

// parseIDs extracts ids from query parameters, supporting both multiple
// keys and comma-separated values (?category=1&category=2,3).
func parseIDs(c *fiber.Ctx, key string) ([]uint64, error) {
	var values []string

	// Visit all query arguments to collect every occurrence of key
	args := c.Context().QueryArgs()
	for k, v := range args.All() {
		if string(k) == key {
			values = append(values, string(v))
		}
	}

	ids, err := types.ParseIDList(values)
	if err != nil {
		return nil, types.FieldError(key, "A valid integer is required.")
	}
	return types.Uint64s(ids), nil
}

// pathID reads a numeric path parameter. Routes constrain it to digits,
// so a failure here means the id overflowed.
func pathID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := services.ParseID(name, c.Params(name), false)
	if err != nil {
		return 0, types.NotFoundError("Not found.")
	}
	return id, nil
}

// pageFrom reads the pagination query parameters.
func pageFrom(c *fiber.Ctx) (services.PageRequest, error) {
	return services.ParsePage(c.Query("page"), c.Query("page_size"))
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// decodeJSON unmarshals the request body into dst and returns the keys
// present in the payload. An empty body decodes to nothing.
func decodeJSON(c *fiber.Ctx, dst any) ([]string, error) {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.ValidationError("Malformed JSON body.")
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, types.FieldError(typeErr.Field, "Incorrect type.")
		}
		return nil, types.ValidationError("Malformed JSON body.")
	}
	return keys, nil
}

// formKeys lists the value and file keys of a multipart form.
func formKeys(form *multipart.Form) []string {
	keys := make([]string, 0, len(form.Value)+len(form.File))
	for k := range form.Value {
		keys = append(keys, k)
	}
	for k := range form.File {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formValue returns the first value of key, or nil when the key is absent.
func formValue(form *multipart.Form, key string) *string {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// formUpload opens the file sent under field. A missing file yields a nil
// upload; the returned close func is always safe to call.
func formUpload(c *fiber.Ctx, field string) (*services.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return nil, noop, types.FieldError(field, "The submitted file is too large.")
		}
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	upload := &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Body:        f,
	}
	return upload, func() { _ = f.Close() }, nil
}

// parseBool accepts the usual form spellings of a boolean.
func parseBool(field, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0", "no", "off":
		return false, nil
	case "true", "1", "yes", "on":
		return true, nil
	}
	return false, types.FieldError(field, "Must be a valid boolean.")
}
