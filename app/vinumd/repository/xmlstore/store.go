package xmlstore

import (
	"os"
	"sync"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/repository"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// keep is the number of configuration versions kept in the directory.
const keep = 3

// store keeps each saved configuration in its own versioned xml file.
type store struct {
	dir    string
	latest table.Version
	mu     sync.Mutex
}

// New returns a xml file store in the given directory.
func New(dir string) (repository.Store, error) {
	logger = mlog.GetPackageLogger("app/vinumd/repository/xmlstore")

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "failed to make configuration directory")
	}

	s := &store{dir: dir}
	vers, err := listVersions(dir)
	if err != nil {
		return nil, err
	}
	if len(vers) > 0 {
		s.latest = vers[len(vers)-1]
	}

	return s, nil
}

func (s *store) Save(cfg table.Config) error {
	ctxLogger := mlog.GetMethodLogger(logger, "store.Save")

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Version <= s.latest {
		ctxLogger.Infof("skip outdated configuration version %d", cfg.Version)
		return nil
	}

	if err := lock(s.dir); err != nil {
		return err
	}
	defer unlock(s.dir)

	if err := encode(cfg, filePath(s.dir, cfg.Version)); err != nil {
		return errors.Wrapf(err, "failed to write configuration version %d", cfg.Version)
	}
	s.latest = cfg.Version

	s.removeOld()
	return nil
}

// removeOld removes every file but the latest few versions.
func (s *store) removeOld() {
	ctxLogger := mlog.GetMethodLogger(logger, "store.removeOld")

	vers, err := listVersions(s.dir)
	if err != nil {
		ctxLogger.Error(err)
		return
	}

	for len(vers) > keep {
		if err := os.Remove(filePath(s.dir, vers[0])); err != nil {
			ctxLogger.Error(err)
		}
		vers = vers[1:]
	}
}

func (s *store) Load() (table.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vers, err := listVersions(s.dir)
	if err != nil {
		return table.Config{}, err
	}

	// Fall back to an older version if the latest can't be read.
	for i := len(vers) - 1; i >= 0; i-- {
		cfg, err := decode(filePath(s.dir, vers[i]))
		if err != nil {
			mlog.GetMethodLogger(logger, "store.Load").Error(
				errors.Wrapf(err, "failed to read configuration version %d", vers[i]),
			)
			continue
		}
		return cfg, nil
	}

	return table.Config{}, repository.ErrNotExist
}

func (s *store) Close() error {
	return nil
}
