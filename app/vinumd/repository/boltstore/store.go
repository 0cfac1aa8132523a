package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/repository"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var logger *logrus.Entry

var (
	// version -> json encoded configuration
	bucketConfigs = []byte("configs")
)

// keep is the number of configuration versions kept in the bucket.
const keep = 3

// store keeps versioned configuration snapshots in a bolt database.
type store struct {
	db *bolt.DB
}

// New opens the bolt database at the given path.
func New(path string) (repository.Store, error) {
	logger = mlog.GetPackageLogger("app/vinumd/repository/boltstore")

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open bolt database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConfigs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create bucket")
	}

	return &store{db: db}, nil
}

func versionKey(ver table.Version) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(ver))
	return key[:]
}

func (s *store) Save(cfg table.Config) error {
	ctxLogger := mlog.GetMethodLogger(logger, "store.Save")

	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		configs := tx.Bucket(bucketConfigs)

		if k, _ := configs.Cursor().Last(); k != nil && binary.BigEndian.Uint64(k) >= uint64(cfg.Version) {
			ctxLogger.Infof("skip outdated configuration version %d", cfg.Version)
			return nil
		}

		if err := configs.Put(versionKey(cfg.Version), data); err != nil {
			return err
		}

		// Drop everything but the latest few versions.
		keys := make([][]byte, 0)
		c := configs.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for len(keys) > keep {
			if err := configs.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
		}
		return nil
	})
}

func (s *store) Load() (table.Config, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		_, v := tx.Bucket(bucketConfigs).Cursor().Last()
		if v == nil {
			return repository.ErrNotExist
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return table.Config{}, err
	}

	cfg := table.New()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return table.Config{}, errors.Wrap(err, "failed to decode configuration")
	}
	return cfg.Copy(), nil
}

func (s *store) Close() error {
	return s.db.Close()
}
