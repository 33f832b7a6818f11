package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/telemetry"
	"github.com/viant/gosh"
	grunner "github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	"golang.org/x/crypto/ssh"
)

// DefaultTimeout applies to commands without a timeout
const DefaultTimeout = time.Hour

// Service runs commands with gosh shell sessions pooled per host
type Service struct {
	secrets *secret.Service
	logger  *telemetry.Logger
	idle    map[string][]*gosh.Service
	closed  bool
	mux     sync.Mutex
}

// New creates a runner service
func New(logger *telemetry.Logger) *Service {
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Service{
		secrets: secret.New(),
		logger:  logger.NewComponentLogger("runner"),
		idle:    make(map[string][]*gosh.Service),
	}
}

var _ Runner = (*Service)(nil)

// Run executes the command; cancelling ctx closes the session, which stops the command
func (s *Service) Run(ctx context.Context, command *Command) (*Result, error) {
	if strings.TrimSpace(command.Line) == "" {
		return nil, fmt.Errorf("command line was empty")
	}
	key := command.Host.Key()
	session, err := s.acquire(ctx, command.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %v: %w", key, err)
	}
	timeout := command.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var killed bool
	var killMux sync.Mutex
	stop := context.AfterFunc(ctx, func() {
		killMux.Lock()
		killed = true
		killMux.Unlock()
		_ = session.Close()
	})
	started := time.Now()
	script := command.Script()
	s.logger.Debugf("running %v on %v", script, key)
	stdout, status, runErr := session.Run(ctx, script, grunner.WithTimeout(int(timeout.Milliseconds())))
	elapsed := time.Since(started)
	stop()
	killMux.Lock()
	wasKilled := killed
	killMux.Unlock()
	if wasKilled {
		return nil, fmt.Errorf("command on %v was interrupted: %w", key, ctx.Err())
	}
	if runErr != nil && elapsed >= timeout {
		_ = session.Close()
		return &Result{Stdout: stdout, Status: -1, Elapsed: elapsed}, fmt.Errorf("command timed out after %s: %w", elapsed, context.DeadlineExceeded)
	}
	s.release(key, session)
	if runErr != nil && status == 0 {
		return nil, fmt.Errorf("failed to run command on %v: %w", key, runErr)
	}
	return &Result{Stdout: stdout, Status: status, Elapsed: elapsed}, nil
}

func (s *Service) acquire(ctx context.Context, host *code.Host) (*gosh.Service, error) {
	key := host.Key()
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return nil, errors.New("runner closed")
	}
	if sessions := s.idle[key]; len(sessions) > 0 {
		session := sessions[len(sessions)-1]
		s.idle[key] = sessions[:len(sessions)-1]
		s.mux.Unlock()
		return session, nil
	}
	s.mux.Unlock()
	if host.IsLocal() {
		return gosh.New(ctx, local.New())
	}
	config, err := s.sshConfig(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get ssh config: %w", err)
	}
	sshHost := url.Host(host.URL)
	if !strings.Contains(sshHost, ":") {
		sshHost += ":22"
	}
	return gosh.New(ctx, rssh.New(sshHost, config))
}

func (s *Service) release(key string, session *gosh.Service) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		_ = session.Close()
		return
	}
	s.idle[key] = append(s.idle[key], session)
}

// sshConfig creates ssh client config from host credentials secret
func (s *Service) sshConfig(ctx context.Context, host *code.Host) (*ssh.ClientConfig, error) {
	credentials := host.Credentials
	if credentials == "" {
		return nil, fmt.Errorf("host %v has no credentials", host.URL)
	}
	generic, err := s.secrets.GetCredentials(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return generic.SSH.Config(ctx)
}

// Close releases all idle sessions
func (s *Service) Close() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.closed = true
	var errs []error
	for key, sessions := range s.idle {
		for _, session := range sessions {
			if err := session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close session %v: %w", key, err))
			}
		}
	}
	s.idle = make(map[string][]*gosh.Service)
	return errors.Join(errs...)
}
