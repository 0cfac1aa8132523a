package admin

import (
	"context"
	"strings"
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/repository/memstore"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
	"github.com/pkg/errors"
)

const mirrorSetup = `
drives:
  - name: d0
    device: /dev/da0
  - name: d1
    device: /dev/da1
volumes:
  - name: v
    setupstate: true
    plexes:
      - organization: concat
        subdisks:
          - drive: d0
            size: 1024
      - subdisks:
          - drive: d1
            size: 1024
`

const mirrorFresh = `
drives:
  - name: d0
    device: /dev/da0
  - name: d1
    device: /dev/da1
volumes:
  - name: v
    plexes:
      - subdisks:
          - drive: d0
            size: 1024
      - subdisks:
          - drive: d1
            size: 1024
`

func newTestHandlers(t *testing.T, file string) (*Handlers, *state.Machine, *memstore.Store) {
	s := memstore.New()
	m := state.New(s)
	h := NewHandlers(m)

	f, err := ParseCreateFile(strings.NewReader(file))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Create(f); err != nil {
		t.Fatal(err)
	}

	return h, m, s
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		name string
		kind Kind
		err  error
	}{
		{"drive", KindDrive, nil},
		{"sd", KindSubdisk, nil},
		{"Plex", KindPlex, nil},
		{"vol", KindVolume, nil},
		{"disk", 0, ErrInvalidKind},
	}

	for _, c := range testCases {
		kind, err := ParseKind(c.name)
		if err != c.err {
			t.Errorf("%s: got error %v, expected %v", c.name, err, c.err)
			continue
		}
		if err == nil && kind != c.kind {
			t.Errorf("%s: got %s, expected %s", c.name, kind, c.kind)
		}
	}
}

func TestCreateWithSetupState(t *testing.T) {
	h, _, s := newTestHandlers(t, mirrorSetup)

	cfg := h.List()
	if len(cfg.Drives) != 2 || len(cfg.Subdisks) != 2 || len(cfg.Plexes) != 2 || len(cfg.Volumes) != 1 {
		t.Fatalf("unexpected tables: %+v", cfg)
	}
	for _, p := range cfg.Plexes {
		if p.State != plex.Up {
			t.Errorf("plex %s: got %s, expected %s", p.Name, p.State, plex.Up)
		}
	}
	if cfg.Subdisks[1].Name != "v.p1.s0" {
		t.Errorf("got subdisk name %s, expected v.p1.s0", cfg.Subdisks[1].Name)
	}
	if cfg.Volumes[0].State != volume.Up {
		t.Errorf("got volume state %s, expected %s", cfg.Volumes[0].State, volume.Up)
	}

	saved, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Version != cfg.Version {
		t.Errorf("got saved version %d, expected %d", saved.Version, cfg.Version)
	}
}

func TestCreateErrors(t *testing.T) {
	testCases := []string{
		// Unknown drive.
		"volumes:\n  - name: v\n    plexes:\n      - subdisks:\n          - drive: nodrive\n            size: 10\n",
		// Unknown organization.
		"volumes:\n  - name: v\n    plexes:\n      - organization: raid9\n",
		// Duplicated drive.
		"drives:\n  - name: d0\n  - name: d0\n",
	}

	for _, c := range testCases {
		h := NewHandlers(state.New(memstore.New()))
		f, err := ParseCreateFile(strings.NewReader(c))
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Create(f); err == nil {
			t.Errorf("%q: expected error, got nil", c)
		}
	}

	if _, err := ParseCreateFile(strings.NewReader("drive: [")); err == nil {
		t.Error("expected parse error, got nil")
	}
}

func TestCreateGeneratesDriveName(t *testing.T) {
	h, _, _ := newTestHandlers(t, "drives:\n  - device: /dev/da9\n")

	name := h.List().Drives[0].Name
	if !strings.HasPrefix(name, "drive-") {
		t.Errorf("got drive name %s, expected a generated one", name)
	}
}

func TestStartRevivesMirror(t *testing.T) {
	h, m, _ := newTestHandlers(t, mirrorFresh)
	ctx := context.Background()

	if err := h.Start(ctx, KindPlex, 0, false); err != nil {
		t.Fatal(err)
	}
	if p, _ := m.Plex(1); p.State == plex.Up {
		t.Fatalf("plex 1 must not be up before it is started")
	}

	if err := h.Start(ctx, KindVolume, 0, false); err != nil {
		t.Fatal(err)
	}

	cfg := h.List()
	for _, p := range cfg.Plexes {
		if p.State != plex.Up {
			t.Errorf("plex %s: got %s, expected %s", p.Name, p.State, plex.Up)
		}
	}
	if sd := cfg.Subdisks[1]; sd.State != subdisk.Up || sd.Revived != sd.Size {
		t.Errorf("unexpected revived subdisk: %+v", sd)
	}
}

func TestStartStopsWithContext(t *testing.T) {
	h, _, _ := newTestHandlers(t, mirrorFresh)

	if err := h.Start(context.Background(), KindPlex, 0, false); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Start(ctx, KindSubdisk, 1, false)
	if errors.Cause(err) != context.Canceled {
		t.Errorf("got %v, expected %v", err, context.Canceled)
	}

	obj, _ := h.Get(KindSubdisk, 1)
	if sd := obj.(subdisk.Subdisk); sd.State != subdisk.Reviving {
		t.Errorf("got %s, expected %s", sd.State, subdisk.Reviving)
	}
}

func TestStopLastPlex(t *testing.T) {
	h, _, _ := newTestHandlers(t, mirrorSetup)

	if err := h.Stop(KindPlex, 0, false); err != nil {
		t.Errorf("first plex: %v", err)
	}
	if err := h.Stop(KindPlex, 1, false); err != ErrBusy {
		t.Errorf("got %v, expected %v", err, ErrBusy)
	}
	if err := h.Stop(KindPlex, 1, true); err != nil {
		t.Errorf("forced: %v", err)
	}

	obj, _ := h.Get(KindVolume, 0)
	if v := obj.(volume.Volume); v.State != volume.Down {
		t.Errorf("got %s, expected %s", v.State, volume.Down)
	}
}

func TestSetState(t *testing.T) {
	h, _, _ := newTestHandlers(t, mirrorSetup)
	ctx := context.Background()

	testCases := []struct {
		kind  Kind
		index int
		state string
		force bool
		err   error
	}{
		{KindSubdisk, 0, "stale", false, ErrBusy},
		{KindSubdisk, 0, "stale", true, nil},
		{KindSubdisk, 0, "nosuchstate", true, ErrInvalidState},
		{KindSubdisk, 5, "up", false, ErrOutOfRange},
		{KindPlex, 0, "initializing", false, ErrBusy},
		{KindDrive, 1, "up", false, nil},
		{KindVolume, -1, "up", false, ErrOutOfRange},
		{Kind(9), 0, "up", false, ErrInvalidKind},
	}

	for i, c := range testCases {
		err := h.SetState(ctx, c.kind, c.index, c.state, c.force)
		if errors.Cause(err) != c.err {
			t.Errorf("case %d: got %v, expected %v", i, err, c.err)
		}
	}

	// The stale subdisk is revived from the other plex.
	if err := h.SetState(ctx, KindSubdisk, 0, "up", false); err != nil {
		t.Errorf("revive: %v", err)
	}
}

func TestInitParityPlex(t *testing.T) {
	file := `
drives:
  - name: d0
  - name: d1
  - name: d2
volumes:
  - name: r
    plexes:
      - organization: raid5
        stripesize: 64
        subdisks:
          - drive: d0
            size: 512
          - drive: d1
            size: 512
          - drive: d2
            size: 512
`
	h, _, _ := newTestHandlers(t, file)
	ctx := context.Background()

	// A parity plex can't come up before its subdisks are initialized.
	if err := h.Start(ctx, KindPlex, 0, false); err != ErrBusy {
		t.Errorf("got %v, expected %v", err, ErrBusy)
	}

	if err := h.Init(ctx, KindPlex, 0, false); err != nil {
		t.Fatal(err)
	}

	obj, _ := h.Get(KindPlex, 0)
	if p := obj.(plex.Plex); p.State != plex.Up {
		t.Errorf("got %s, expected %s", p.State, plex.Up)
	}
	if err := h.Init(ctx, KindVolume, 0, false); err != ErrInvalidKind {
		t.Errorf("got %v, expected %v", err, ErrInvalidKind)
	}
}

func TestInitRefusesLivePlex(t *testing.T) {
	h, m, _ := newTestHandlers(t, mirrorSetup)
	ctx := context.Background()

	if err := h.Open(KindVolume, 0); err != nil {
		t.Fatal(err)
	}

	if err := h.Init(ctx, KindPlex, 0, false); err != ErrBusy {
		t.Errorf("plex: got %v, expected %v", err, ErrBusy)
	}
	if err := h.Init(ctx, KindSubdisk, 1, false); err != ErrBusy {
		t.Errorf("subdisk: got %v, expected %v", err, ErrBusy)
	}

	cfg := h.List()
	for _, p := range cfg.Plexes {
		if p.State != plex.Up {
			t.Errorf("plex %s: got %s, expected %s", p.Name, p.State, plex.Up)
		}
	}
	for _, sd := range cfg.Subdisks {
		if sd.State != subdisk.Up {
			t.Errorf("subdisk %s: got %s, expected %s", sd.Name, sd.State, subdisk.Up)
		}
	}

	if err := h.Init(ctx, KindSubdisk, 1, true); err != nil {
		t.Fatalf("forced: %v", err)
	}
	if sd, _ := m.Subdisk(1); sd.Initialized != sd.Size {
		t.Errorf("forced: got init pointer %d, expected %d", sd.Initialized, sd.Size)
	}
}

func TestOpenClose(t *testing.T) {
	h, m, _ := newTestHandlers(t, mirrorSetup)

	if err := h.Open(KindPlex, 0); err != ErrInvalidKind {
		t.Errorf("got %v, expected %v", err, ErrInvalidKind)
	}
	if err := h.Open(KindVolume, 3); err != ErrOutOfRange {
		t.Errorf("got %v, expected %v", err, ErrOutOfRange)
	}

	if err := h.Open(KindVolume, 0); err != nil {
		t.Fatal(err)
	}
	if err := h.Stop(KindDrive, 0, false); err != ErrBusy {
		t.Errorf("drive of open volume: got %v, expected %v", err, ErrBusy)
	}
	if err := h.Stop(KindVolume, 0, false); err != ErrBusy {
		t.Errorf("open volume: got %v, expected %v", err, ErrBusy)
	}

	if err := h.Close(KindVolume, 0); err != nil {
		t.Fatal(err)
	}
	if d, _ := m.Drive(0); d.OpenCount != 0 {
		t.Errorf("got open count %d, expected 0", d.OpenCount)
	}
	if err := h.Stop(KindVolume, 0, false); err != nil {
		t.Errorf("closed volume: %v", err)
	}

	// A volume which is down can't be opened.
	if err := h.Open(KindVolume, 0); err != ErrBusy {
		t.Errorf("down volume: got %v, expected %v", err, ErrBusy)
	}
}
