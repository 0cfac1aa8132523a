package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/usecase/admin"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create [config file]",
	Short: "create objects from a yaml config file",
	Long:  "create objects from a yaml config file",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("requires one config file")
		}
		return nil
	},
	Run: createRun,
}

func createRun(cmd *cobra.Command, args []string) {
	f, err := os.Open(args[0])
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	// Check the file locally for a readable error.
	if _, err := admin.ParseCreateFile(f); err != nil {
		log.Fatal(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		log.Fatal(err)
	}

	var cfg table.Config
	if err := call("POST", "/v1/create", nil, f, &cfg); err != nil {
		log.Fatal(err)
	}

	printConfig(os.Stdout, cfg)
}

func init() {
	addClientFlags(createCmd)
}
