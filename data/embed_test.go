package data

import (
	"strings"
	"testing"
)

func TestInitdbRendersAccounts(t *testing.T) {
	acct := Accounts{Database: "gamestore", User: "app", Password: "pw", ReadUser: "reader", ReadPassword: "rpw"}

	for _, dbType := range []string{"mariadb", "postgres"} {
		script, err := Initdb(dbType, acct)
		if err != nil {
			t.Fatalf("%s: %v", dbType, err)
		}
		if strings.Contains(script, "{{") {
			t.Errorf("%s: unrendered placeholder in %q", dbType, script)
		}
		if !strings.Contains(script, "reader") {
			t.Errorf("%s: read user missing", dbType)
		}
		for _, stmt := range Statements(script) {
			if strings.HasPrefix(stmt, "--") {
				t.Errorf("%s: comment kept as a statement: %q", dbType, stmt)
			}
		}
	}

	if _, err := Initdb("sqlite", acct); err == nil {
		t.Error("Expected no script for sqlite")
	}
}

func TestStatements(t *testing.T) {
	got := Statements("-- header\nCREATE X;\n\nGRANT Y\n  TO z;\n")
	if len(got) != 2 || got[0] != "CREATE X" || got[1] != "GRANT Y\n  TO z" {
		t.Errorf("Unexpected statements %q", got)
	}
}
