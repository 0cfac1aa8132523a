package memstore

import (
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/repository"
)

func TestStore(t *testing.T) {
	s := New()

	if _, err := s.Load(); err != repository.ErrNotExist {
		t.Errorf("got %v, expected %v", err, repository.ErrNotExist)
	}

	cfg := table.New()
	cfg.Version = 2
	cfg.Drives = append(cfg.Drives, drive.New("d0", "/dev/da0"))
	if err := s.Save(cfg); err != nil {
		t.Fatal(err)
	}

	// Mutating the saved value must not reach the store.
	cfg.Drives[0].Name = "changed"

	older := table.New()
	older.Version = 1
	s.Save(older)

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 2 || len(got.Drives) != 1 || got.Drives[0].Name != "d0" {
		t.Errorf("unexpected configuration: %+v", got)
	}
	if n := s.Saves(); n != 1 {
		t.Errorf("got %d saves, expected 1", n)
	}
}
