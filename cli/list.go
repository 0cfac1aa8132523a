package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list every drive, volume, plex and subdisk",
	Long:  "list every drive, volume, plex and subdisk",
	Run:   listRun,
}

func listRun(cmd *cobra.Command, args []string) {
	var cfg table.Config
	if err := call("GET", "/v1/config", nil, nil, &cfg); err != nil {
		log.Fatal(err)
	}

	printConfig(os.Stdout, cfg)
}

// printConfig writes the tables in the vinum list format.
func printConfig(out io.Writer, cfg table.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%d drives:\n", len(cfg.Drives))
	for i, d := range cfg.Drives {
		fmt.Fprintf(w, "D %d\t%s\tState: %s\tDevice %s\n", i, d.Name, d.State, d.Device)
	}

	fmt.Fprintf(w, "\n%d volumes:\n", len(cfg.Volumes))
	for i, v := range cfg.Volumes {
		fmt.Fprintf(w, "V %d\t%s\tState: %s\tPlexes: %d\n", i, v.Name, v.State, len(v.Plexes))
	}

	fmt.Fprintf(w, "\n%d plexes:\n", len(cfg.Plexes))
	for i, p := range cfg.Plexes {
		fmt.Fprintf(w, "P %d\t%s\t%s\tState: %s\tSubdisks: %d\n", i, p.Name, p.Organization, p.State, len(p.Subdisks))
	}

	fmt.Fprintf(w, "\n%d subdisks:\n", len(cfg.Subdisks))
	for i, sd := range cfg.Subdisks {
		drive := "-"
		if sd.Drive >= 0 && sd.Drive < len(cfg.Drives) {
			drive = cfg.Drives[sd.Drive].Name
		}
		fmt.Fprintf(w, "S %d\t%s\tState: %s\tDrive %s\tSize: %d\n", i, sd.Name, sd.State, drive, sd.Size)
	}

	w.Flush()
}

func init() {
	addClientFlags(listCmd)
}
