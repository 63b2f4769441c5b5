package bsec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

const (
	// closeGrace is how long Close waits after SIGTERM before declaring the
	// session stopped.
	closeGrace = time.Second

	// startupProbe is how long Open watches a freshly launched child for an
	// immediate exit (bad arguments, missing I2C device) before handing the
	// stream to the caller.
	startupProbe = 100 * time.Millisecond

	// defaultTimezonePath is where Debian-family systems record the local
	// timezone. The child stamps measurements with localtime, so the zone
	// must be propagated into its environment.
	defaultTimezonePath = "/etc/timezone"

	// recordBuffer is the record channel capacity. A small buffer decouples
	// the reader goroutine from a briefly busy consumer without reordering
	// or dropping anything.
	recordBuffer = 8
)

// Artifacts holds the resolved on-disk inputs of one supervisor session.
type Artifacts struct {
	// Executable is the built fusion binary.
	Executable string

	// Config is the runtime configuration blob.
	Config string

	// State is the calibration-state file.
	State string
}

// Supervisor owns the lifecycle of one fusion child process and exposes its
// output as a stream of parsed measurements.
//
// Lifecycle: NewSupervisor → Open → Records/Err → Close, and Open again to
// start a fresh session. A Supervisor never restarts the child on its own;
// that policy belongs to the service manager running the daemon.
//
// The supervisor assumes it is the only instance working in its directory.
// Two supervisors sharing a working directory can race on the build, config
// and state artifacts; nothing locks them.
type Supervisor struct {
	device       DeviceConfig
	paths        Artifacts
	timezonePath string
	logger       Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	running  bool
	stop     chan struct{}
	waited   chan struct{}
	records  chan Measurement
	exitCode int
	termErr  error
}

// NewSupervisor creates a supervisor for the given device and resolved
// artifact paths. No process is started until Open.
func NewSupervisor(device DeviceConfig, paths Artifacts) *Supervisor {
	return &Supervisor{
		device:       device,
		paths:        paths,
		timezonePath: defaultTimezonePath,
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// SetTimezonePath overrides where the local timezone is read from.
// Used by tests.
func (s *Supervisor) SetTimezonePath(path string) {
	s.timezonePath = path
}

// IsRunning reports whether a child process session is active.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Open launches the fusion child process and starts streaming its output.
// Calling Open on a running session logs a warning and does nothing.
func (s *Supervisor) Open() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("fusion process is already running")
		return nil
	}

	cmd := exec.Command(s.paths.Executable, //nolint:gosec // Path produced by the build cache
		strconv.Itoa(s.device.I2CAddress()),
		strconv.FormatFloat(s.device.TempOffset(), 'f', -1, 64),
		s.device.SampleRateLabel(),
	)
	// The child opens its config and state files relative to its working
	// directory, so run it where the artifacts live.
	cmd.Dir = filepath.Dir(s.paths.State)
	cmd.Env = append(os.Environ(), "TZ="+s.resolveTimezone())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("starting fusion process: %w", err)
	}

	s.cmd = cmd
	s.running = true
	s.termErr = nil
	s.exitCode = 0
	s.stop = make(chan struct{})
	s.waited = make(chan struct{})
	s.records = make(chan Measurement, recordBuffer)
	waited := s.waited
	sess := session{records: s.records, stop: s.stop, waited: s.waited}
	s.mu.Unlock()

	go s.readLoop(cmd, stdout, sess)

	// A child that rejects its arguments or cannot reach the sensor exits
	// within milliseconds; surface that as an Open failure rather than an
	// empty stream.
	select {
	case <-waited:
		s.mu.Lock()
		code := s.exitCode
		s.running = false
		s.cmd = nil
		s.mu.Unlock()
		s.logger.Error("fusion process exited during startup", "exit_code", code)
		return fmt.Errorf("%w: exit code %d", ErrAlreadyExited, code)
	case <-time.After(startupProbe):
	}

	s.logger.Info("fusion process started",
		"pid", cmd.Process.Pid,
		"i2c_address", fmt.Sprintf("0x%X", s.device.I2CAddress()),
		"sample_rate", s.device.SampleRateLabel(),
	)
	return nil
}

// Close requests graceful shutdown of the child and marks the session
// stopped. Calling Close on a session that is not running logs a warning and
// returns nil.
//
// After SIGTERM the child gets a fixed one-second grace period. When the
// grace expires the session is declared stopped without verifying the child
// exited and without escalating to SIGKILL — a known gap, kept because the
// service manager supervising this daemon owns recovery of a wedged child.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn("fusion process is not running")
		return nil
	}
	cmd := s.cmd
	stop := s.stop
	waited := s.waited
	s.mu.Unlock()

	// Unblock the reader goroutine if it is parked delivering a record.
	close(stop)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("failed to signal fusion process", "error", err)
	}

	select {
	case <-waited:
	case <-time.After(closeGrace):
		s.logger.Warn("fusion process did not exit within grace period, marking stopped anyway",
			"grace", closeGrace,
		)
	}

	s.mu.Lock()
	s.running = false
	s.cmd = nil
	s.mu.Unlock()

	s.logger.Info("fusion process stopped")
	return nil
}

// Records returns the measurement stream of the current session. The channel
// is closed when the child closes its pipe, when the child reports a
// non-zero status, or when Close is called; consult Err afterwards to
// distinguish the cases. Records are delivered strictly in emission order.
//
// Calling Records on a session that was never opened logs a warning and
// returns a closed channel.
func (s *Supervisor) Records() <-chan Measurement {
	s.mu.Lock()
	records := s.records
	s.mu.Unlock()

	if records == nil {
		s.logger.Warn("no measurements to stream; fusion process was never started")
		closed := make(chan Measurement)
		close(closed)
		return closed
	}
	return records
}

// Err returns the terminal stream error of the most recent session, or nil
// if the stream ended cleanly (pipe closed or session closed). It is
// meaningful once the Records channel has closed.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.termErr
}

// resolveTimezone reads the system timezone name for the child's TZ
// environment variable, falling back to UTC when the file is unreadable.
func (s *Supervisor) resolveTimezone() string {
	data, err := os.ReadFile(s.timezonePath)
	if err != nil {
		s.logger.Warn("could not read system timezone, defaulting to UTC",
			"path", s.timezonePath,
			"error", err,
		)
		return "UTC"
	}
	tz := string(bytes.TrimSpace(data))
	if tz == "" {
		s.logger.Warn("system timezone file is empty, defaulting to UTC", "path", s.timezonePath)
		return "UTC"
	}
	return tz
}

// session is the channel set of one child process lifetime. The reader
// goroutine holds its own copy so that a session which outlives its grace
// period can never touch the channels of a newer session.
type session struct {
	records chan Measurement
	stop    chan struct{}
	waited  chan struct{}
}

// readLoop consumes newline-delimited JSON from the child's stdout, parses
// each line, and delivers measurements until the pipe closes, a record is
// fatal, or the session is closed.
func (s *Supervisor) readLoop(cmd *exec.Cmd, stdout io.Reader, sess session) {
	defer s.reap(cmd, sess)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		// The child terminates lines with \r\n.
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		m, err := ParseMeasurement(line)
		if err != nil {
			s.logger.Error("dropping measurement stream", "error", err, "line", string(line))
			s.terminate(sess, err)
			return
		}

		if m.Status != 0 {
			err := fmt.Errorf("%w: code %d", ErrSensorStatus, m.Status)
			s.logger.Error("fusion library returned error status", "status", m.Status)
			s.terminate(sess, err)
			return
		}

		select {
		case sess.records <- m:
		case <-sess.stop:
			s.terminate(sess, nil)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("reading fusion process output", "error", err)
		s.terminate(sess, err)
		return
	}

	s.logger.Warn("fusion process closed its output stream")
	s.terminate(sess, nil)
}

// terminate records the terminal stream condition and closes the record
// channel exactly once per session.
func (s *Supervisor) terminate(sess session, err error) {
	s.mu.Lock()
	if s.records == sess.records {
		s.termErr = err
	}
	s.mu.Unlock()
	close(sess.records)
}

// reap waits for the child to exit and records its exit code. All reads from
// the stdout pipe are complete by the time reap runs.
func (s *Supervisor) reap(cmd *exec.Cmd, sess session) {
	err := cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waited == sess.waited {
		s.exitCode = 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				s.exitCode = exitErr.ExitCode()
			} else {
				s.exitCode = -1
			}
		}
	}
	close(sess.waited)
}
