// embed.go
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

// Package data embeds the database bootstrap scripts.
package data

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed initdb/mariadb/001-database.sql
var InitdbMariaDB string

//go:embed initdb/postgres/001-database.sql
var InitdbPostgres string

// Accounts fills the account placeholders of the init scripts.
type Accounts struct {
	Database     string
	User         string
	Password     string
	ReadUser     string
	ReadPassword string
}

// Initdb returns the rendered init script for dbType.
func Initdb(dbType string, acct Accounts) (string, error) {
	var src string
	switch dbType {
	case "mysql", "mariadb":
		src = InitdbMariaDB
	case "postgres":
		src = InitdbPostgres
	default:
		return "", fmt.Errorf("no init script for %s", dbType)
	}
	tmpl, err := template.New(dbType).Parse(src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, acct); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Statements splits a script into statements, dropping "--" comment lines.
func Statements(script string) []string {
	var lines []string
	for _, l := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}
	var out []string
	for _, q := range strings.Split(strings.Join(lines, "\n"), ";") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
