// Package config describes configuration for the iqdb server.
package config // import "github.com/Gavin1937/danbooru-iqdb/server/config"

type Config struct {
	// HttpSpec is the listen address, e.g. ":8588".
	HttpSpec string `json:"http_spec"`
	// DbPath is the sqlite database path.  ":memory:" is ephemeral.
	DbPath string `json:"db_path"`
}

var DefaultValues = &Config{
	HttpSpec: ":8588",
	DbPath:   "iqdb.sqlite",
}
