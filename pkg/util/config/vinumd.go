package config

// Vinumd holds info required to set a volume manager daemon.
type Vinumd struct {
	// ServerAddr is the address of the control plane.
	ServerAddr string
	// ServerPort is the port of the control plane.
	ServerPort string

	// WorkDir is a working directory of the daemon.
	WorkDir string

	// CloseQueueSize is the initial capacity of the drive close queue.
	CloseQueueSize string

	// Store config.
	Store Store

	// LogLocation is the file path of daemon logging.
	// Default output path is stderr.
	LogLocation string
}

// Store holds info required to set the configuration store.
type Store struct {
	// Kind is the type of backend store: xml, bolt, mysql or mem.
	Kind string

	// XMLDir is the directory of versioned xml configuration files.
	XMLDir string

	// BoltPath is the file path of the bolt database.
	BoltPath string

	// MySQLUser is the user ID of MySQL database.
	MySQLUser string
	// MySQLPassword is the password of MySQL user.
	MySQLPassword string
	// MySQLDatabase is the schema name.
	MySQLDatabase string
	// MySQLHost is the host address of MySQL server.
	MySQLHost string
	// MySQLPort is the port number of MySQL server.
	MySQLPort string
}

// Default returns the daemon config filled from the loaded config file.
func Default() Vinumd {
	return Vinumd{
		ServerAddr:     Get("vinumd.addr"),
		ServerPort:     Get("vinumd.port"),
		WorkDir:        Get("vinumd.work_dir"),
		CloseQueueSize: Get("vinumd.close_queue_size"),
		LogLocation:    Get("vinumd.log_location"),
		Store: Store{
			Kind:          Get("store.kind"),
			XMLDir:        Get("store.xml_dir"),
			BoltPath:      Get("store.bolt_path"),
			MySQLUser:     Get("store.mysql_user"),
			MySQLPassword: Get("store.mysql_password"),
			MySQLDatabase: Get("store.mysql_database"),
			MySQLHost:     Get("store.mysql_host"),
			MySQLPort:     Get("store.mysql_port"),
		},
	}
}
