package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// clientCfg is the daemon address the control commands ask.
var clientCfg config.Vinumd

// addClientFlags adds the flags which select the daemon to ask.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&clientCfg.ServerAddr, "bind", "b", config.Get("vinumd.addr"), "will ask the daemon of this address")
	cmd.Flags().StringVarP(&clientCfg.ServerPort, "port", "p", config.Get("vinumd.port"), "will ask the daemon of this port")
}

// call sends the request to the daemon and decodes the json response into v.
func call(method, path string, query url.Values, body io.Reader, v interface{}) error {
	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(clientCfg.ServerAddr, clientCfg.ServerPort),
		Path:     path,
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return err
	}

	// Revive and init may take long; no timeout for those.
	cli := &http.Client{}
	if method == http.MethodGet {
		cli.Timeout = 10 * time.Second
	}

	res, err := cli.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to ask the daemon")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("%s %s: %s", method, path, res.Status)
		}
		return errors.New(e.Error)
	}

	if v == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}
