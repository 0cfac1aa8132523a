package xmlstore

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
)

const (
	fileName      = "vinum_config"
	fileExtension = ".xml"
)

func filePath(dir string, ver table.Version) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", fileName, ver, fileExtension))
}

// fileVersion parses the version out of a configuration file name.
func fileVersion(name string) (table.Version, bool) {
	prefix := fileName + "."
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileExtension) {
		return 0, false
	}

	v, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileExtension), 10, 64)
	if err != nil {
		return 0, false
	}
	return table.Version(v), true
}

// listVersions returns the versions of the configuration files in the
// directory, oldest first.
func listVersions(dir string) ([]table.Version, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	vers := make([]table.Version, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if v, ok := fileVersion(e.Name()); ok {
			vers = append(vers, v)
		}
	}
	sort.Slice(vers, func(i, j int) bool { return vers[i] < vers[j] })

	return vers, nil
}

func encode(cfg table.Config, path string) error {
	// Write to a temporary file and rename it, so a crash never leaves
	// a half written configuration behind.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	xmlWriter := io.Writer(f)
	enc := xml.NewEncoder(xmlWriter)
	enc.Indent("", "    ")
	if err := enc.Encode(cfg); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func decode(path string) (table.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Config{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return table.Config{}, err
	}

	cfg := table.New()
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return table.Config{}, err
	}

	return cfg.Copy(), nil
}
