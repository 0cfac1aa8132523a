package cli

import (
	"log"
	"os"

	"github.com/chanyoung/vinum/app/vinumd"
	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/spf13/cobra"
)

var daemonCfg config.Vinumd

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "run the volume manager daemon",
	Long:  "run the volume manager daemon",
	Run:   daemonRun,
}

func daemonRun(cmd *cobra.Command, args []string) {
	if err := os.Chdir(daemonCfg.WorkDir); err != nil {
		log.Fatal(err)
	}

	if err := vinumd.Bootstrap(daemonCfg); err != nil {
		log.Fatal(err)
	}
}

func init() {
	daemonCmd.Flags().StringVarP(&daemonCfg.ServerAddr, "bind", "b", config.Get("vinumd.addr"), "address to which the daemon will bind")
	daemonCmd.Flags().StringVarP(&daemonCfg.ServerPort, "port", "p", config.Get("vinumd.port"), "port on which the daemon will listen")

	daemonCmd.Flags().StringVarP(&daemonCfg.WorkDir, "work-dir", "", config.Get("vinumd.work_dir"), "working directory")
	daemonCmd.Flags().StringVarP(&daemonCfg.CloseQueueSize, "close-queue-size", "", config.Get("vinumd.close_queue_size"), "initial capacity of the drive close queue")

	daemonCmd.Flags().StringVarP(&daemonCfg.Store.Kind, "store", "", config.Get("store.kind"), "type of configuration store: xml, bolt, mysql or mem")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.XMLDir, "xml-dir", "", config.Get("store.xml_dir"), "directory of xml configuration files")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.BoltPath, "bolt-path", "", config.Get("store.bolt_path"), "file path of the bolt database")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.MySQLUser, "mysql-user", "", config.Get("store.mysql_user"), "user id of mysql database")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.MySQLPassword, "mysql-password", "", config.Get("store.mysql_password"), "password of mysql user")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.MySQLDatabase, "mysql-database", "", config.Get("store.mysql_database"), "mysql database name")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.MySQLHost, "mysql-host", "", config.Get("store.mysql_host"), "host address of mysql server")
	daemonCmd.Flags().StringVarP(&daemonCfg.Store.MySQLPort, "mysql-port", "", config.Get("store.mysql_port"), "port number of mysql server")

	daemonCmd.Flags().StringVarP(&daemonCfg.LogLocation, "log", "l", config.Get("vinumd.log_location"), "log location of the daemon will print out")
}
