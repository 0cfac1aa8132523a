package device

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/drive"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Entry

// ErrNotOpen is used when closing a device which is not open.
var ErrNotOpen = errors.New("device is not open")

// Manager holds the open device files of the drives.
// Device paths which are not absolute are resolved against the work dir.
//
// Every Open of a device, including a reopen of a device which is
// already open, bumps its generation. Release closes the device only if
// nobody opened it since the generation was taken.
type Manager struct {
	workDir     string
	files       map[string]*os.File
	generations map[string]uint64
	mu          sync.Mutex
}

// NewManager returns a device manager rooted at the work dir.
func NewManager(workDir string) *Manager {
	logger = mlog.GetPackageLogger("app/vinumd/infrastructure/device")

	return &Manager{
		workDir:     workDir,
		files:       make(map[string]*os.File),
		generations: make(map[string]uint64),
	}
}

func (m *Manager) path(d drive.Drive) string {
	if filepath.IsAbs(d.Device) {
		return d.Device
	}
	return filepath.Join(m.workDir, d.Device)
}

// Open opens the device of the drive for reading and writing.
// Opening a device which is already open is a no-op.
func (m *Manager) Open(d drive.Drive) error {
	ctxLogger := mlog.GetMethodLogger(logger, "Manager.Open")

	if d.Device == "" {
		return errors.Errorf("drive %s has no device", d.Name)
	}
	path := m.path(d)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; ok {
		m.generations[path]++
		return nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "failed to open device of drive %s", d.Name)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to stat device of drive %s", d.Name)
	}
	if fi.IsDir() {
		f.Close()
		return errors.Errorf("device %s of drive %s is a directory", path, d.Name)
	}

	m.files[path] = f
	m.generations[path]++
	ctxLogger.Infof("drive %s opened device %s", d.Name, path)
	return nil
}

// Generation returns the open generation of the device of the drive.
func (m *Manager) Generation(d drive.Drive) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.generations[m.path(d)]
}

// Release closes the device of the drive if it has not been opened
// again since the generation was taken. It returns false if the device
// was left open.
func (m *Manager) Release(d drive.Drive, generation uint64) (bool, error) {
	path := m.path(d)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generations[path] != generation {
		return false, nil
	}

	f, ok := m.files[path]
	if !ok {
		return false, ErrNotOpen
	}
	delete(m.files, path)
	return true, f.Close()
}

// file returns the open device file of the drive.
func (m *Manager) file(d drive.Drive) (*os.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[m.path(d)]
	if !ok {
		return nil, errors.Wrapf(ErrNotOpen, "drive %s", d.Name)
	}
	return f, nil
}

// ReadAt reads len(p) bytes from the device of the drive at the byte
// offset. Bytes beyond the end of a device file read as zeros.
func (m *Manager) ReadAt(d drive.Drive, p []byte, off int64) error {
	f, err := m.file(d)
	if err != nil {
		return err
	}

	n, err := f.ReadAt(p, off)
	if err == io.EOF {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return nil
	}
	return errors.Wrapf(err, "failed to read device of drive %s", d.Name)
}

// WriteAt writes p to the device of the drive at the byte offset.
func (m *Manager) WriteAt(d drive.Drive, p []byte, off int64) error {
	f, err := m.file(d)
	if err != nil {
		return err
	}

	_, err = f.WriteAt(p, off)
	return errors.Wrapf(err, "failed to write device of drive %s", d.Name)
}

// IsOpen returns true if the device of the drive is open.
func (m *Manager) IsOpen(d drive.Drive) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.files[m.path(d)]
	return ok
}

// CloseAll closes every open device.
func (m *Manager) CloseAll() {
	ctxLogger := mlog.GetMethodLogger(logger, "Manager.CloseAll")

	m.mu.Lock()
	defer m.mu.Unlock()

	for path, f := range m.files {
		if err := f.Close(); err != nil {
			ctxLogger.Error(errors.Wrapf(err, "failed to close device %s", path))
		}
		delete(m.files, path)
	}
}
