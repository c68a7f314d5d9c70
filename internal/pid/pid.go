package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/threadstone/internal/errors"
)

const (
	pidFile = "threadstone.pid"
)

// Lock is a held run lock. Only one benchmark run per host may hold it,
// since concurrent runs would skew each other's samples.
type Lock struct {
	path string
}

// Path returns the default lock location.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Acquire creates the PID file at path holding the current process ID.
// Creation is exclusive: when the file already exists and names a live
// process, ErrAlreadyRunning is returned. A file left by a process that is
// no longer running is removed and creation is retried once.
func Acquire(path string) (*Lock, error) {
	errFactory := errors.New()

	if path == "" {
		path = Path()
	}

	for attempt := 0; ; attempt++ {
		err := create(path)
		if err == nil {
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}

		running, herr := holder(path)
		if herr != nil {
			return nil, errFactory.Wrap(errors.ErrInternal, herr)
		}
		if running != 0 || attempt > 0 {
			return nil, errFactory.WithData(errors.ErrAlreadyRunning, running)
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}
	}
}

// create publishes a fully written PID file at path, failing with
// os.ErrExist when path is taken. The hard link makes the file appear with
// its content, so a competing Acquire never reads a half-written PID.
func create(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return os.Link(tmp.Name(), path)
}

// holder returns the PID of a live process holding path, or 0.
func holder(path string) (int, error) {
	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 {
		// Unparsable content is a torn write from a crashed run.
		return 0, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, nil
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, nil
	}

	return pid, nil
}

// Release removes the PID file. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	errFactory := errors.New()

	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(l.path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
