package table

import (
	"reflect"
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
)

func testConfig() Config {
	c := New()
	c.Drives = append(c.Drives, drive.New("d0", "/dev/da0"))
	sd := subdisk.New("v.p0.s0", 0, 0, 1024)
	sd.Plex = 0
	c.Subdisks = append(c.Subdisks, sd)
	p := plex.New("v.p0", plex.Concat, 0)
	p.Subdisks = append(p.Subdisks, 0)
	p.Volume = 0
	c.Plexes = append(c.Plexes, p)
	v := volume.New("v", 0)
	v.Plexes = append(v.Plexes, 0)
	c.Volumes = append(c.Volumes, v)
	return c
}

func TestCopy(t *testing.T) {
	c := testConfig()
	copied := c.Copy()

	if !reflect.DeepEqual(c, copied) {
		t.Fatal("copied config is not equal to the source")
	}

	copied.Plexes[0].Subdisks[0] = 9
	copied.Volumes[0].Plexes[0] = 9
	if c.Plexes[0].Subdisks[0] != 0 || c.Volumes[0].Plexes[0] != 0 {
		t.Error("copy shares member slices with the source")
	}
}

func TestValidate(t *testing.T) {
	c := testConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	c.Plexes[0].Subdisks = append(c.Plexes[0].Subdisks, 3)
	err := c.Validate()
	if _, ok := err.(*RefError); !ok {
		t.Errorf("expected RefError, got %v", err)
	}
}
