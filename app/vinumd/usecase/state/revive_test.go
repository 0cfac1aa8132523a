package state

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// addPlex adds a plex with one subdisk per size to the volume. Every
// subdisk lives at the start of its own drive, which is up.
func addPlex(t *testing.T, m *Machine, volno int, org plex.Organization, stripe int64, sizes ...int64) int {
	plexno, err := m.AddPlex(plex.New(fmt.Sprintf("p%d", len(m.cfg.Plexes)), org, stripe), volno)
	if err != nil {
		t.Fatal(err)
	}

	for _, size := range sizes {
		name := fmt.Sprintf("s%d", len(m.cfg.Subdisks))
		driveno, err := m.AddDrive(drive.New("d-"+name, "/dev/"+name))
		if err != nil {
			t.Fatal(err)
		}
		if r := m.SetDriveState(driveno, drive.Up, Configuring); r != Applied {
			t.Fatalf("drive %d: got %s, expected %s", driveno, r, Applied)
		}
		if _, err := m.AddSubdisk(subdisk.New(name, driveno, 0, size), plexno); err != nil {
			t.Fatal(err)
		}
	}

	return plexno
}

// sectorOf returns the contents of the sector at the plex address.
func sectorOf(addr int64) []byte {
	return bytes.Repeat([]byte{byte(addr%251 + 1)}, subdisk.SectorSize)
}

// fillPlex writes sectorOf into every data sector of the plex.
func fillPlex(t *testing.T, m *Machine, d *fakeDevice, plexno int) {
	l := layout{cfg: &m.cfg}
	for _, sdno := range m.cfg.Plexes[plexno].Subdisks {
		sd := m.cfg.Subdisks[sdno]
		for off := int64(0); off < sd.Size; off++ {
			addr, _, ok := l.plexAddress(sdno, off)
			if !ok {
				continue
			}
			if err := d.WriteAt(m.cfg.Drives[sd.Drive], sectorOf(addr), off*subdisk.SectorSize); err != nil {
				t.Fatal(err)
			}
		}
	}
}

// writeParity computes the parity sectors of every stripe row of the plex.
func writeParity(t *testing.T, m *Machine, d *fakeDevice, plexno int) {
	p := &m.cfg.Plexes[plexno]
	k := len(p.Subdisks)
	s := stripeSize(p)

	enc, err := reedsolomon.New(k-1, 1)
	if err != nil {
		t.Fatal(err)
	}

	size := m.cfg.Subdisks[p.Subdisks[0]].Size
	for row := int64(0); row*s < size; row++ {
		parity := parityPosition(p.Organization, k, row)
		shards := make([][]byte, k)
		for pos, sdno := range p.Subdisks {
			if pos == parity {
				continue
			}
			dr := m.cfg.Drives[m.cfg.Subdisks[sdno].Drive]
			shards[shardIndex(pos, parity, k)] = d.sectors(t, dr, row*s, s)
		}
		shards[k-1] = make([]byte, s*subdisk.SectorSize)
		if err := enc.Encode(shards); err != nil {
			t.Fatal(err)
		}

		dr := m.cfg.Drives[m.cfg.Subdisks[p.Subdisks[parity]].Drive]
		if err := d.WriteAt(dr, shards[k-1], row*s*subdisk.SectorSize); err != nil {
			t.Fatal(err)
		}
	}
}

func reviveAll(t *testing.T, m *Machine, sdno int) {
	for {
		r, err := m.ReviveBlock(sdno)
		if err != nil {
			t.Fatal(err)
		}
		if r == Applied {
			return
		}
		if r != Retry {
			t.Fatalf("got %s, expected %s", r, Retry)
		}
	}
}

func TestReviveCopiesFromStripedPlex(t *testing.T) {
	m, _, d, _ := newTestMachine()
	volno, err := m.AddVolume(volume.New("v", 0))
	if err != nil {
		t.Fatal(err)
	}
	src := addPlex(t, m, volno, plex.Striped, 64, 512, 512)
	dst := addPlex(t, m, volno, plex.Concat, 0, 1024)

	setSubdisks(m, src, subdisk.Up, subdisk.Up)
	setSubdisks(m, dst, subdisk.Stale)
	fillPlex(t, m, d, src)

	sdno := m.cfg.Plexes[dst].Subdisks[0]
	if r := m.SetSubdiskState(sdno, subdisk.Up, 0); r != Retry {
		t.Fatalf("got %s, expected %s", r, Retry)
	}
	reviveAll(t, m, sdno)

	dr, _ := m.Drive(m.cfg.Subdisks[sdno].Drive)
	for addr := int64(0); addr < 1024; addr++ {
		if got := d.sectors(t, dr, addr, 1); !bytes.Equal(got, sectorOf(addr)) {
			t.Fatalf("sector %d: got %d, expected %d", addr, got[0], sectorOf(addr)[0])
		}
	}
	if p, _ := m.Plex(dst); p.State != plex.Up {
		t.Errorf("got plex state %s, expected %s", p.State, plex.Up)
	}
}

func TestReviveRebuildsFromParity(t *testing.T) {
	m, _, d, _ := newTestMachine()
	volno, err := m.AddVolume(volume.New("r", 0))
	if err != nil {
		t.Fatal(err)
	}
	plexno := addPlex(t, m, volno, plex.RAID5, 64, 256, 256, 256)
	fillPlex(t, m, d, plexno)
	writeParity(t, m, d, plexno)

	sdno := m.cfg.Plexes[plexno].Subdisks[1]
	dr, _ := m.Drive(m.cfg.Subdisks[sdno].Drive)
	expected := d.sectors(t, dr, 0, 256)

	// Lose the contents of the middle subdisk.
	if err := d.WriteAt(dr, make([]byte, 256*subdisk.SectorSize), 0); err != nil {
		t.Fatal(err)
	}
	setSubdisks(m, plexno, subdisk.Up, subdisk.Stale, subdisk.Up)

	if r := m.SetSubdiskState(sdno, subdisk.Up, 0); r != Retry {
		t.Fatalf("got %s, expected %s", r, Retry)
	}
	reviveAll(t, m, sdno)

	if got := d.sectors(t, dr, 0, 256); !bytes.Equal(got, expected) {
		t.Error("rebuilt subdisk differs from its contents before the loss")
	}
	if p, _ := m.Plex(plexno); p.State != plex.Up {
		t.Errorf("got plex state %s, expected %s", p.State, plex.Up)
	}
}

func TestReviveWithoutSource(t *testing.T) {
	m, _, _, _ := newTestMachine()
	buildVolume(t, m, 0, 1, plex.Concat, plex.Concat)
	setSubdisks(m, 0, subdisk.Up)
	setSubdisks(m, 1, subdisk.Reviving)
	setSubdisks(m, 0, subdisk.Crashed)

	if _, err := m.ReviveBlock(1); errors.Cause(err) != ErrNoReviveSource {
		t.Errorf("got %v, expected %v", err, ErrNoReviveSource)
	}
	if sd, _ := m.Subdisk(1); sd.State != subdisk.Reviving || sd.Revived != 0 {
		t.Errorf("unexpected subdisk after failed revive: %+v", sd)
	}
}

func TestInitBlockZeroes(t *testing.T) {
	m, _, d, _ := newTestMachine()
	buildVolume(t, m, 0, 1, plex.Concat)

	dr, _ := m.Drive(0)
	if err := d.WriteAt(dr, bytes.Repeat([]byte{0xff}, 1024*subdisk.SectorSize), 0); err != nil {
		t.Fatal(err)
	}

	if r := m.StartInit(0, 0); r != Applied {
		t.Fatalf("got %s, expected %s", r, Applied)
	}
	for {
		r, err := m.InitBlock(0)
		if err != nil {
			t.Fatal(err)
		}
		if r == Applied {
			break
		}
	}

	if got := d.sectors(t, dr, 0, 1024); !bytes.Equal(got, make([]byte, 1024*subdisk.SectorSize)) {
		t.Error("initialized subdisk is not zeroed")
	}
}

func TestStartInitRefusesLiveSubdisk(t *testing.T) {
	m, _, _, _ := newTestMachine()
	buildVolume(t, m, 0, 1, plex.Concat)
	setSubdisks(m, 0, subdisk.Up)

	for _, st := range []subdisk.State{subdisk.Up, subdisk.Reborn, subdisk.Reviving, subdisk.Crashed} {
		m.cfg.Subdisks[0].State = st
		if r := m.StartInit(0, 0); r != Unchanged {
			t.Errorf("%s: got %s, expected %s", st, r, Unchanged)
		}
		if sd, _ := m.Subdisk(0); sd.State != st {
			t.Errorf("%s: subdisk became %s", st, sd.State)
		}
	}

	if r := m.StartInit(0, Force); r != Applied {
		t.Errorf("forced: got %s, expected %s", r, Applied)
	}
	if sd, _ := m.Subdisk(0); sd.State != subdisk.Initializing {
		t.Errorf("forced: got %s, expected %s", sd.State, subdisk.Initializing)
	}

	// An interrupted init resumes where it stopped.
	m.cfg.Subdisks[0].Initialized = 128
	if r := m.StartInit(0, 0); r != Unchanged {
		t.Errorf("resume: got %s, expected %s", r, Unchanged)
	}
	if sd, _ := m.Subdisk(0); sd.Initialized != 128 {
		t.Errorf("resume: got pointer %d, expected 128", sd.Initialized)
	}
}

func TestLayout(t *testing.T) {
	m, _, _, _ := newTestMachine()
	buildVolume(t, m, 0, 2, plex.Concat)
	layoutPlex := func(org plex.Organization) int {
		volno, err := m.AddVolume(volume.New(org.String(), 0))
		if err != nil {
			t.Fatal(err)
		}
		return addPlex(t, m, volno, org, 0, 1024, 1024, 1024)
	}
	striped := layoutPlex(plex.Striped)
	raid5 := layoutPlex(plex.RAID5)
	l := layout{cfg: &m.cfg}

	testCases := []struct {
		plexno int
		pos    int
		off    int64
		addr   int64
		n      int64
		ok     bool
	}{
		{0, 1, 10, 1034, 1014, true},
		{striped, 1, 600, 2136, 424, true},
		{raid5, 2, 600, 1624, 424, true},
		{raid5, 1, 600, 0, 424, false},
	}

	for _, c := range testCases {
		sdno := m.cfg.Plexes[c.plexno].Subdisks[c.pos]
		addr, n, ok := l.plexAddress(sdno, c.off)
		if addr != c.addr || n != c.n || ok != c.ok {
			t.Errorf("plex %d subdisk %d offset %d: got (%d, %d, %v), expected (%d, %d, %v)",
				c.plexno, c.pos, c.off, addr, n, ok, c.addr, c.n, c.ok)
		}
		if !ok {
			continue
		}

		got, off, _, ok := l.subdiskAt(c.plexno, c.addr)
		if !ok || got != sdno || off != c.off {
			t.Errorf("plex %d address %d: got subdisk %d offset %d, expected %d offset %d",
				c.plexno, c.addr, got, off, sdno, c.off)
		}
	}

	if _, _, _, ok := l.subdiskAt(0, 2048); ok {
		t.Error("address beyond the plex must not map to a subdisk")
	}
}
