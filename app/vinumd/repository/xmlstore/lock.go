package xmlstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
)

const (
	lockFileName = "LOCK"
	lockRetries  = 50
	lockInterval = 100 * time.Millisecond
)

// lock locks updating the configuration files by the LOCK file.
func lock(dir string) error {
	ctxLogger := mlog.GetFunctionLogger(logger, "lock")

	lockFile := filepath.Join(dir, lockFileName)
	for i := 0; i < lockRetries; i++ {
		f, err := os.OpenFile(lockFile, os.O_RDWR|os.O_CREATE|os.O_EXCL, os.FileMode(0444))
		if err == nil {
			f.Close()
			return nil
		}
		if !os.IsExist(err) {
			return err
		}

		ctxLogger.Info("file lock waiting")
		time.Sleep(lockInterval)
	}

	return errors.Errorf("timeout waiting for %s", lockFile)
}

// unlock unlocks updating the configuration files by the LOCK file.
func unlock(dir string) {
	os.RemoveAll(filepath.Join(dir, lockFileName))
}
