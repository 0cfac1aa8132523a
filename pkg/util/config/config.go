package config

import (
	"fmt"
	"sync"

	"github.com/Jeffail/gabs"
	"github.com/pkg/errors"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "config.json"

var (
	config *gabs.Container
	mu     sync.RWMutex
)

// defaults are returned by Get when the loaded file has no such path.
var defaults = map[string]string{
	"vinumd.addr":             "localhost",
	"vinumd.port":             "51000",
	"vinumd.work_dir":         ".",
	"vinumd.log_location":     "stderr",
	"vinumd.close_queue_size": "64",
	"store.kind":              "xml",
	"store.xml_dir":           "vinum_config",
	"store.bolt_path":         "vinum.db",
	"store.mysql_user":        "vinum",
	"store.mysql_password":    "",
	"store.mysql_host":        "localhost",
	"store.mysql_port":        "3306",
	"store.mysql_database":    "vinum",
}

// Load parses the JSON config file in the given path.
func Load(path string) error {
	json, err := gabs.ParseJSONFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	mu.Lock()
	config = json
	mu.Unlock()
	return nil
}

// LoadBytes parses the given JSON document as config.
func LoadBytes(b []byte) error {
	json, err := gabs.ParseJSON(b)
	if err != nil {
		return errors.Wrap(err, "failed to parse config")
	}

	mu.Lock()
	config = json
	mu.Unlock()
	return nil
}

// Get returns config data with the given path.
// Config data is converted to string; a missing path falls back to
// the built-in default, or the empty string.
func Get(path string) string {
	mu.RLock()
	c := config
	mu.RUnlock()

	if c != nil && c.ExistsP(path) {
		switch v := c.Path(path).Data().(type) {
		case string:
			return v
		case nil:
		default:
			return fmt.Sprint(v)
		}
	}

	return defaults[path]
}

func init() {
	// A missing config file is not fatal; defaults are used instead.
	Load(DefaultFile)
}
