package table

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
)

// Version is the sequence number of a saved configuration.
type Version int64

// Config holds the four object tables. Objects refer to each other
// by their index in the tables, -1 meaning none.
type Config struct {
	XMLName  struct{}          `xml:"vinum" json:"-" yaml:"-"`
	Version  Version           `xml:"version" json:"version"`
	Drives   []drive.Drive     `xml:"drive" json:"drives"`
	Subdisks []subdisk.Subdisk `xml:"subdisk" json:"subdisks"`
	Plexes   []plex.Plex       `xml:"plex" json:"plexes"`
	Volumes  []volume.Volume   `xml:"volume" json:"volumes"`
}

// New returns an empty configuration.
func New() Config {
	return Config{
		Drives:   make([]drive.Drive, 0),
		Subdisks: make([]subdisk.Subdisk, 0),
		Plexes:   make([]plex.Plex, 0),
		Volumes:  make([]volume.Volume, 0),
	}
}

// Copy does deep copy of the configuration.
func (c *Config) Copy() Config {
	copied := Config{Version: c.Version}

	copied.Drives = make([]drive.Drive, len(c.Drives))
	copy(copied.Drives, c.Drives)

	copied.Subdisks = make([]subdisk.Subdisk, len(c.Subdisks))
	copy(copied.Subdisks, c.Subdisks)

	copied.Plexes = make([]plex.Plex, len(c.Plexes))
	copy(copied.Plexes, c.Plexes)
	for i, p := range c.Plexes {
		copied.Plexes[i].Subdisks = make([]int, len(p.Subdisks))
		copy(copied.Plexes[i].Subdisks, p.Subdisks)
	}

	copied.Volumes = make([]volume.Volume, len(c.Volumes))
	copy(copied.Volumes, c.Volumes)
	for i, v := range c.Volumes {
		copied.Volumes[i].Plexes = make([]int, len(v.Plexes))
		copy(copied.Volumes[i].Plexes, v.Plexes)
	}

	return copied
}

// Validate checks that every cross reference points into the tables.
func (c *Config) Validate() error {
	for i, sd := range c.Subdisks {
		if sd.State == subdisk.Unallocated {
			continue
		}
		if sd.Drive < 0 || sd.Drive >= len(c.Drives) {
			return &RefError{Kind: "subdisk", Index: i, Ref: "drive", RefIndex: sd.Drive}
		}
		if sd.Plex >= len(c.Plexes) {
			return &RefError{Kind: "subdisk", Index: i, Ref: "plex", RefIndex: sd.Plex}
		}
	}

	for i, p := range c.Plexes {
		if p.State == plex.Unallocated {
			continue
		}
		for _, sdno := range p.Subdisks {
			if sdno < 0 || sdno >= len(c.Subdisks) {
				return &RefError{Kind: "plex", Index: i, Ref: "subdisk", RefIndex: sdno}
			}
		}
		if p.Volume >= len(c.Volumes) {
			return &RefError{Kind: "plex", Index: i, Ref: "volume", RefIndex: p.Volume}
		}
	}

	for i, v := range c.Volumes {
		if v.State == volume.Unallocated {
			continue
		}
		for _, plexno := range v.Plexes {
			if plexno < 0 || plexno >= len(c.Plexes) {
				return &RefError{Kind: "volume", Index: i, Ref: "plex", RefIndex: plexno}
			}
		}
	}

	return nil
}
