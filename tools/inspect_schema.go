//go:build ignore

// inspect_schema prints the DDL GORM generates for the gamestore models on
// an in-memory sqlite database.
//
//	go run tools/inspect_schema.go
package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/database"
)

func main() {
	db, err := database.Connect(&config.Config{DBType: "sqlite", DBDatabase: ":memory:", DBConnectionLimit: 1})
	if err != nil {
		log.Fatal(err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)
	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var ddl []string
		db.Raw("SELECT sql FROM sqlite_master WHERE tbl_name = ? AND sql IS NOT NULL ORDER BY type DESC", table).Scan(&ddl)
		for _, stmt := range ddl {
			fmt.Println(stmt + ";")
		}
	}
}
