package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/crypto/ssh"

	"github.com/flotilla-run/flotilla/internal/config"
	"github.com/flotilla-run/flotilla/internal/logger"
	flotillaerrors "github.com/flotilla-run/flotilla/pkg/errors"
)

const (
	defaultSSHPort = 22
	sshDialTimeout = 10 * time.Second
	dialMaxElapsed = 30 * time.Second
)

var (
	breakersMu sync.Mutex
	breakers   = make(map[string]*gobreaker.CircuitBreaker)
)

// breakerFor returns the circuit breaker guarding dials to one address, so a
// host that keeps refusing connections is skipped fast instead of holding
// every task for a full retry cycle.
func breakerFor(addr string) *gobreaker.CircuitBreaker {
	breakersMu.Lock()
	defer breakersMu.Unlock()

	if cb, ok := breakers[addr]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        addr,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	breakers[addr] = cb
	return cb
}

// dialSSH opens an SSH connection with exponential backoff between attempts
// and the per-host breaker around each one.
func dialSSH(ctx context.Context, host string, spec config.ProtocolSpec, log *logger.Logger) (*ssh.Client, error) {
	clientCfg, err := sshClientConfig(spec)
	if err != nil {
		return nil, err
	}

	port := spec.Port
	if port == 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.Multiplier = 1.5
	policy.RandomizationFactor = 0.5
	policy.MaxElapsedTime = dialMaxElapsed

	cb := breakerFor(addr)

	var client *ssh.Client
	operation := func() error {
		res, err := cb.Execute(func() (any, error) {
			return ssh.Dial("tcp", addr, clientCfg)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			log.WithFields(map[string]any{"addr": addr, "error": err.Error()}).Warn("ssh dial failed, retrying")
			return err
		}
		client = res.(*ssh.Client)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("dial %s: %w", addr, err))
	}

	return client, nil
}

// sshClientConfig assembles auth methods from the configured credentials.
func sshClientConfig(spec config.ProtocolSpec) (*ssh.ClientConfig, error) {
	creds := spec.Credentials
	if creds.Username == "" {
		return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("credentials.username is required"))
	}

	var methods []ssh.AuthMethod
	if creds.KeyFile != "" {
		key, err := os.ReadFile(creds.KeyFile)
		if err != nil {
			return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("read private key: %w", err))
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("parse private key: %w", err))
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, flotillaerrors.NewProtocolError("ssh", fmt.Errorf("credentials need a keyFile or password"))
	}

	return &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}, nil
}
