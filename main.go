package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/Gavin1937/danbooru-iqdb/server"
	"github.com/Gavin1937/danbooru-iqdb/server/config"
)

var (
	configPath = flag.String("config", ".config.json", "The default configuration file")
	spec       = flag.String("spec", "", "HTTP listen address")
	dbPath     = flag.String("db", "", "Path to the sqlite database, \":memory:\" for ephemeral")
)

func getConfig(path string) (*config.Config, error) {
	conf := new(config.Config)
	*conf = *config.DefaultValues
	f, err := os.Open(path)

	if os.IsNotExist(err) {
		glog.Info("Unable to open config file, using defaults")
		return conf, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	configDecoder := json.NewDecoder(f)
	if err := configDecoder.Decode(conf); err != nil {
		return nil, err
	}

	return conf, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	c, err := getConfig(*configPath)
	if err != nil {
		glog.Fatal(err)
	}
	if *spec != "" {
		c.HttpSpec = *spec
	}
	if *dbPath != "" {
		c.DbPath = *dbPath
	}

	s := &server.Server{}
	if sts := s.StartAndWait(c); sts != nil {
		glog.Fatal(sts)
	}
}
