package mysqlstore

import (
	"os"
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := config.Store{
		MySQLUser:     "vinum",
		MySQLPassword: "secret",
		MySQLHost:     "127.0.0.1",
		MySQLPort:     "3306",
		MySQLDatabase: "vinum",
	}

	assert.Equal(t, "vinum:secret@tcp(127.0.0.1:3306)/vinum", dsn(cfg))
}

// TestSaveLoad runs against a live server given by VINUM_TEST_MYSQL_HOST.
func TestSaveLoad(t *testing.T) {
	host := os.Getenv("VINUM_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("VINUM_TEST_MYSQL_HOST is not set")
	}

	s, err := New(config.Store{
		MySQLUser:     os.Getenv("VINUM_TEST_MYSQL_USER"),
		MySQLPassword: os.Getenv("VINUM_TEST_MYSQL_PASSWORD"),
		MySQLHost:     host,
		MySQLPort:     "3306",
		MySQLDatabase: "vinum_test",
	})
	require.NoError(t, err)
	defer s.Close()

	cfg := table.New()
	cfg.Version = 1 << 40

	d := drive.New("d0", "/dev/da0")
	d.State = drive.Up
	cfg.Drives = append(cfg.Drives, d)

	for i := 0; i < 2; i++ {
		sd := subdisk.New("v.p0.s"+string(rune('0'+i)), 0, int64(i)*1024, 1024)
		sd.State = subdisk.Up
		sd.Plex = 0
		sd.PlexOffset = int64(i) * 1024
		cfg.Subdisks = append(cfg.Subdisks, sd)
	}

	p := plex.New("v.p0", plex.Concat, 0)
	p.State = plex.Up
	p.Subdisks = []int{0, 1}
	p.Volume = 0
	cfg.Plexes = append(cfg.Plexes, p)

	v := volume.New("v", 0)
	v.State = volume.Up
	v.Plexes = []int{0}
	cfg.Volumes = append(cfg.Volumes, v)

	require.NoError(t, s.Save(cfg))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
