package mysqlstore

// generateSQLBase is the query list of SQL statements required to build the vinum backend.
var generateSQLBase = []string{
	`
		CREATE TABLE IF NOT EXISTS config (
			cfg_id int unsigned NOT NULL,
			cfg_version bigint NOT NULL,
			PRIMARY KEY (cfg_id)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS drive (
			drv_index int unsigned NOT NULL,
			drv_name varchar(64) CHARACTER SET ascii NOT NULL,
			drv_device varchar(255) CHARACTER SET ascii NOT NULL,
			drv_state varchar(32) CHARACTER SET ascii NOT NULL,
			PRIMARY KEY (drv_index)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS volume (
			vol_index int unsigned NOT NULL,
			vol_name varchar(64) CHARACTER SET ascii NOT NULL,
			vol_state varchar(32) CHARACTER SET ascii NOT NULL,
			vol_flags int unsigned NOT NULL,
			PRIMARY KEY (vol_index)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS plex (
			plex_index int unsigned NOT NULL,
			plex_name varchar(64) CHARACTER SET ascii NOT NULL,
			plex_state varchar(32) CHARACTER SET ascii NOT NULL,
			plex_organization varchar(32) CHARACTER SET ascii NOT NULL,
			plex_stripe_size bigint NOT NULL,
			plex_sddown int NOT NULL,
			plex_volume int NOT NULL,
			PRIMARY KEY (plex_index)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS subdisk (
			sd_index int unsigned NOT NULL,
			sd_name varchar(64) CHARACTER SET ascii NOT NULL,
			sd_state varchar(32) CHARACTER SET ascii NOT NULL,
			sd_drive int NOT NULL,
			sd_plex int NOT NULL,
			sd_drive_offset bigint NOT NULL,
			sd_plex_offset bigint NOT NULL,
			sd_size bigint NOT NULL,
			sd_revived bigint NOT NULL,
			sd_revive_block_size bigint NOT NULL,
			sd_initialized bigint NOT NULL,
			sd_init_block_size bigint NOT NULL,
			PRIMARY KEY (sd_index)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS plex_subdisk (
			ps_plex int unsigned NOT NULL,
			ps_order int unsigned NOT NULL,
			ps_subdisk int unsigned NOT NULL,
			PRIMARY KEY (ps_plex, ps_order)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS volume_plex (
			vp_volume int unsigned NOT NULL,
			vp_order int unsigned NOT NULL,
			vp_plex int unsigned NOT NULL,
			PRIMARY KEY (vp_volume, vp_order)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
}

// objectTables are cleared before a configuration is written.
var objectTables = []string{
	"volume_plex",
	"plex_subdisk",
	"subdisk",
	"plex",
	"volume",
	"drive",
}
