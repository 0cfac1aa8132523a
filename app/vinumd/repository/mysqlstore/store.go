package mysqlstore

import (
	"database/sql"
	"fmt"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/repository"
	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// configID is the row of the config table holding the saved version.
const configID = 1

// store is a mysql store, which keeps one row per object.
type store struct {
	db *mySQL
}

// New connects to the configured MySQL database and builds the tables.
func New(cfg config.Store) (repository.Store, error) {
	logger = mlog.GetPackageLogger("app/vinumd/repository/mysqlstore")

	db, err := newMySQL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql database")
	}

	return &store{db: db}, nil
}

func (s *store) Save(cfg table.Config) (err error) {
	ctxLogger := mlog.GetMethodLogger(logger, "store.Save")

	tx, err := s.db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var latest table.Version
	err = tx.QueryRow("SELECT cfg_version FROM config WHERE cfg_id=? FOR UPDATE", configID).Scan(&latest)
	switch {
	case err == sql.ErrNoRows:
		latest = -1
	case err != nil:
		return err
	}
	if cfg.Version <= latest {
		ctxLogger.Infof("skip outdated configuration version %d", cfg.Version)
		err = tx.Rollback()
		return err
	}

	for _, t := range objectTables {
		if _, err = tx.Exec(fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return errors.Wrapf(err, "failed to clear table %s", t)
		}
	}

	if err = insertObjects(tx, cfg); err != nil {
		return err
	}

	_, err = tx.Exec(
		`
		INSERT INTO config (cfg_id, cfg_version)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE cfg_version=VALUES(cfg_version)
		`, configID, cfg.Version,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertObjects(tx *sql.Tx, cfg table.Config) error {
	for i, d := range cfg.Drives {
		_, err := tx.Exec(
			`
			INSERT INTO drive (drv_index, drv_name, drv_device, drv_state)
			VALUES (?, ?, ?, ?)
			`, i, d.Name, d.Device, d.State.String(),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert drive %s", d.Name)
		}
	}

	for i, v := range cfg.Volumes {
		_, err := tx.Exec(
			`
			INSERT INTO volume (vol_index, vol_name, vol_state, vol_flags)
			VALUES (?, ?, ?, ?)
			`, i, v.Name, v.State.String(), uint32(v.Flags),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert volume %s", v.Name)
		}
		for order, plexno := range v.Plexes {
			_, err := tx.Exec("INSERT INTO volume_plex (vp_volume, vp_order, vp_plex) VALUES (?, ?, ?)", i, order, plexno)
			if err != nil {
				return errors.Wrapf(err, "failed to insert plexes of volume %s", v.Name)
			}
		}
	}

	for i, p := range cfg.Plexes {
		_, err := tx.Exec(
			`
			INSERT INTO plex (plex_index, plex_name, plex_state, plex_organization, plex_stripe_size, plex_sddown, plex_volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			`, i, p.Name, p.State.String(), p.Organization.String(), p.StripeSize, p.SdDown, p.Volume,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert plex %s", p.Name)
		}
		for order, sdno := range p.Subdisks {
			_, err := tx.Exec("INSERT INTO plex_subdisk (ps_plex, ps_order, ps_subdisk) VALUES (?, ?, ?)", i, order, sdno)
			if err != nil {
				return errors.Wrapf(err, "failed to insert subdisks of plex %s", p.Name)
			}
		}
	}

	for i, sd := range cfg.Subdisks {
		_, err := tx.Exec(
			`
			INSERT INTO subdisk (
				sd_index, sd_name, sd_state, sd_drive, sd_plex,
				sd_drive_offset, sd_plex_offset, sd_size,
				sd_revived, sd_revive_block_size, sd_initialized, sd_init_block_size
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
			i, sd.Name, sd.State.String(), sd.Drive, sd.Plex,
			sd.DriveOffset, sd.PlexOffset, sd.Size,
			sd.Revived, sd.ReviveBlockSize, sd.Initialized, sd.InitBlockSize,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert subdisk %s", sd.Name)
		}
	}

	return nil
}

func (s *store) Load() (table.Config, error) {
	cfg := table.New()

	err := s.db.db.QueryRow("SELECT cfg_version FROM config WHERE cfg_id=?", configID).Scan(&cfg.Version)
	if err == sql.ErrNoRows {
		return table.Config{}, repository.ErrNotExist
	} else if err != nil {
		return table.Config{}, err
	}

	if cfg.Drives, err = s.loadDrives(); err != nil {
		return table.Config{}, err
	}
	if cfg.Subdisks, err = s.loadSubdisks(); err != nil {
		return table.Config{}, err
	}
	if cfg.Plexes, err = s.loadPlexes(); err != nil {
		return table.Config{}, err
	}
	if cfg.Volumes, err = s.loadVolumes(); err != nil {
		return table.Config{}, err
	}

	return cfg.Copy(), nil
}

func (s *store) loadDrives() (drives []drive.Drive, err error) {
	rows, err := s.db.db.Query("SELECT drv_name, drv_device, drv_state FROM drive ORDER BY drv_index")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drives = make([]drive.Drive, 0)
	for rows.Next() {
		var (
			d     drive.Drive
			state string
		)
		if err = rows.Scan(&d.Name, &d.Device, &state); err != nil {
			return nil, err
		}
		if d.State, err = drive.ParseState(state); err != nil {
			return nil, errors.Wrapf(err, "drive %s", d.Name)
		}
		drives = append(drives, d)
	}

	return drives, rows.Err()
}

func (s *store) loadSubdisks() (sds []subdisk.Subdisk, err error) {
	rows, err := s.db.db.Query(
		`
		SELECT
			sd_name, sd_state, sd_drive, sd_plex,
			sd_drive_offset, sd_plex_offset, sd_size,
			sd_revived, sd_revive_block_size, sd_initialized, sd_init_block_size
		FROM
			subdisk
		ORDER BY
			sd_index
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sds = make([]subdisk.Subdisk, 0)
	for rows.Next() {
		var (
			sd    subdisk.Subdisk
			state string
		)
		err = rows.Scan(
			&sd.Name, &state, &sd.Drive, &sd.Plex,
			&sd.DriveOffset, &sd.PlexOffset, &sd.Size,
			&sd.Revived, &sd.ReviveBlockSize, &sd.Initialized, &sd.InitBlockSize,
		)
		if err != nil {
			return nil, err
		}
		if sd.State, err = subdisk.ParseState(state); err != nil {
			return nil, errors.Wrapf(err, "subdisk %s", sd.Name)
		}
		sds = append(sds, sd)
	}

	return sds, rows.Err()
}

func (s *store) loadPlexes() (plexes []plex.Plex, err error) {
	rows, err := s.db.db.Query(
		`
		SELECT
			plex_name, plex_state, plex_organization, plex_stripe_size, plex_sddown, plex_volume
		FROM
			plex
		ORDER BY
			plex_index
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plexes = make([]plex.Plex, 0)
	for rows.Next() {
		var (
			p          plex.Plex
			state, org string
		)
		if err = rows.Scan(&p.Name, &state, &org, &p.StripeSize, &p.SdDown, &p.Volume); err != nil {
			return nil, err
		}
		if p.State, err = plex.ParseState(state); err != nil {
			return nil, errors.Wrapf(err, "plex %s", p.Name)
		}
		if p.Organization, err = plex.ParseOrganization(org); err != nil {
			return nil, errors.Wrapf(err, "plex %s", p.Name)
		}
		p.Subdisks = make([]int, 0)
		plexes = append(plexes, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	err = s.loadMembers("SELECT ps_plex, ps_subdisk FROM plex_subdisk ORDER BY ps_plex, ps_order", func(owner, member int) error {
		if owner < 0 || owner >= len(plexes) {
			return errors.Errorf("subdisk %d refers to unknown plex %d", member, owner)
		}
		plexes[owner].Subdisks = append(plexes[owner].Subdisks, member)
		return nil
	})
	return plexes, err
}

func (s *store) loadVolumes() (vols []volume.Volume, err error) {
	rows, err := s.db.db.Query("SELECT vol_name, vol_state, vol_flags FROM volume ORDER BY vol_index")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vols = make([]volume.Volume, 0)
	for rows.Next() {
		var (
			v     volume.Volume
			state string
			flags uint32
		)
		if err = rows.Scan(&v.Name, &state, &flags); err != nil {
			return nil, err
		}
		if v.State, err = volume.ParseState(state); err != nil {
			return nil, errors.Wrapf(err, "volume %s", v.Name)
		}
		v.Flags = volume.Flags(flags)
		v.Plexes = make([]int, 0)
		vols = append(vols, v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	err = s.loadMembers("SELECT vp_volume, vp_plex FROM volume_plex ORDER BY vp_volume, vp_order", func(owner, member int) error {
		if owner < 0 || owner >= len(vols) {
			return errors.Errorf("plex %d refers to unknown volume %d", member, owner)
		}
		vols[owner].Plexes = append(vols[owner].Plexes, member)
		return nil
	})
	return vols, err
}

// loadMembers runs a query returning (owner, member) index pairs.
func (s *store) loadMembers(query string, add func(owner, member int) error) error {
	rows, err := s.db.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var owner, member int
		if err := rows.Scan(&owner, &member); err != nil {
			return err
		}
		if err := add(owner, member); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (s *store) Close() error {
	return s.db.close()
}
