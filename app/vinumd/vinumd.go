package vinumd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chanyoung/vinum/app/vinumd/delivery"
	"github.com/chanyoung/vinum/app/vinumd/infrastructure/device"
	"github.com/chanyoung/vinum/app/vinumd/repository"
	"github.com/chanyoung/vinum/app/vinumd/repository/boltstore"
	"github.com/chanyoung/vinum/app/vinumd/repository/memstore"
	"github.com/chanyoung/vinum/app/vinumd/repository/mysqlstore"
	"github.com/chanyoung/vinum/app/vinumd/repository/xmlstore"
	"github.com/chanyoung/vinum/app/vinumd/usecase/admin"
	"github.com/chanyoung/vinum/app/vinumd/usecase/daemon"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
	"github.com/chanyoung/vinum/pkg/util/config"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// NewStore opens the configuration store of the configured kind.
func NewStore(cfg config.Store) (repository.Store, error) {
	switch cfg.Kind {
	case "xml":
		return xmlstore.New(cfg.XMLDir)
	case "bolt":
		return boltstore.New(cfg.BoltPath)
	case "mysql":
		return mysqlstore.New(cfg)
	case "mem":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("not supported store type: %s", cfg.Kind)
	}
}

// Bootstrap build up the volume manager daemon.
func Bootstrap(cfg config.Vinumd) error {
	// Setup logger.
	if err := mlog.Init(cfg.LogLocation); err != nil {
		return errors.Wrap(err, "init log failed")
	}
	logger = mlog.GetPackageLogger("app/vinumd")

	ctxLogger := mlog.GetFunctionLogger(logger, "Bootstrap")
	ctxLogger.Info("start bootstrap vinumd ...")

	// Setup repository.
	store, err := NewStore(cfg.Store)
	if err != nil {
		return errors.Wrap(err, "failed to open configuration store")
	}
	defer store.Close()

	// Setup devices and the close worker.
	queueSize, err := strconv.Atoi(cfg.CloseQueueSize)
	if err != nil {
		return errors.Wrapf(err, "invalid close queue size %q", cfg.CloseQueueSize)
	}
	devices := device.NewManager(cfg.WorkDir)
	defer devices.CloseAll()
	closeWorker := daemon.NewCloseWorker(devices, queueSize)

	// Setup the state machine with the saved configuration.
	m := state.New(store,
		state.WithDevice(devices),
		state.WithBlockDevice(devices),
		state.WithCloser(closeWorker),
	)
	saved, err := store.Load()
	switch {
	case err == repository.ErrNotExist:
		ctxLogger.Info("no saved configuration, start empty")
	case err != nil:
		return errors.Wrap(err, "failed to load configuration")
	default:
		if err := m.Load(saved); err != nil {
			return err
		}
		ctxLogger.Infof("loaded configuration version %d", saved.Version)
	}

	if err := closeWorker.Start(); err != nil {
		return err
	}
	defer closeWorker.Stop()

	m.ReopenDrives()

	// Setup delivery service.
	adminHandlers := admin.NewHandlers(m)
	delivery, err := delivery.NewDeliveryService(&cfg, delivery.NewAdminService(adminHandlers))
	if err != nil {
		return errors.Wrap(err, "failed to setup delivery")
	}
	delivery.Run()

	ctxLogger.Info("bootstrap vinumd succeeded")

	// Make channel for Ctrl-C or other terminate signal is received.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	<-sigc
	ctxLogger.Info("received stop signal from OS")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := delivery.Stop(ctx); err != nil {
		ctxLogger.Error(errors.Wrap(err, "failed to stop delivery"))
	}

	return nil
}
