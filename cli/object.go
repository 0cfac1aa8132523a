package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/chanyoung/vinum/app/vinumd/usecase/admin"
	"github.com/spf13/cobra"
)

// force is set by the -f flag of the object commands.
var force bool

// objectArgs checks the trailing [kind] [index] arguments.
func objectArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("requires %d arguments", n)
		}
		if _, err := admin.ParseKind(args[n-2]); err != nil {
			return fmt.Errorf("%s: %v", args[n-2], err)
		}
		if _, err := strconv.Atoi(args[n-1]); err != nil {
			return fmt.Errorf("invalid index %s", args[n-1])
		}
		return nil
	}
}

// volumeArgs checks the single volume index argument.
func volumeArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("requires 1 argument")
	}
	if _, err := strconv.Atoi(args[0]); err != nil {
		return fmt.Errorf("invalid index %s", args[0])
	}
	return nil
}

// objectCall sends an object command and prints the resulting object.
func objectCall(kind, index, op string) {
	kindName := kind
	if k, err := admin.ParseKind(kind); err == nil {
		kindName = k.String()
	}

	query := url.Values{}
	if force {
		query.Set("force", "true")
	}

	var obj map[string]interface{}
	if err := call("PUT", "/v1/"+kindName+"/"+index+"/"+op, query, nil, &obj); err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(obj)
}

var startCmd = &cobra.Command{
	Use:   "start [kind] [index]",
	Short: "bring an object up, reviving subdisks as needed",
	Long:  "bring an object up, reviving subdisks as needed",
	Args:  objectArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		objectCall(args[0], args[1], "start")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [kind] [index]",
	Short: "take an object down",
	Long:  "take an object down",
	Args:  objectArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		objectCall(args[0], args[1], "stop")
	},
}

var initCmd = &cobra.Command{
	Use:   "init [kind] [index]",
	Short: "initialize a subdisk or every subdisk of a plex",
	Long:  "initialize a subdisk or every subdisk of a plex",
	Args:  objectArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		objectCall(args[0], args[1], "init")
	},
}

var openCmd = &cobra.Command{
	Use:   "open [index]",
	Short: "open a volume, holding its drives up",
	Long:  "open a volume, holding its drives up",
	Args:  volumeArgs,
	Run: func(cmd *cobra.Command, args []string) {
		objectCall("volume", args[0], "open")
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [index]",
	Short: "close a volume",
	Long:  "close a volume",
	Args:  volumeArgs,
	Run: func(cmd *cobra.Command, args []string) {
		objectCall("volume", args[0], "close")
	},
}

var setstateCmd = &cobra.Command{
	Use:   "setstate [state] [kind] [index]",
	Short: "request a state for an object",
	Long:  "request a state for an object",
	Args:  objectArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		objectCall(args[1], args[2], "state/"+url.PathEscape(args[0]))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{startCmd, stopCmd, initCmd, setstateCmd} {
		addClientFlags(cmd)
		cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the safety checks")
	}
	addClientFlags(openCmd)
	addClientFlags(closeCmd)
}
