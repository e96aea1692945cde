// Package rotator cycles single validated endpoints into the proxychains
// configuration on an interval.
package rotator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"proxychains-pool/pkg/models"
)

// Policy selects which endpoint the next cycle rotates to.
type Policy string

const (
	PolicyRandom     Policy = "random"
	PolicyRoundRobin Policy = "round-robin"
)

// ParsePolicy validates a user-supplied selection policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRandom, PolicyRoundRobin:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unsupported rotation policy: %q (must be random or round-robin)", s)
	}
}

// ErrEmptyPool reports that there is nothing to rotate to. Callers decide
// whether that is fatal.
var ErrEmptyPool = errors.New("no validated proxies to rotate")

// Installer installs one endpoint as the sole active proxy. Satisfied by
// chains.Editor.
type Installer interface {
	InstallSingle(ep models.Endpoint, proxyType models.ProxyType) error
}

// Driver runs the rotation loop. It owns its copy of the validated pool.
type Driver struct {
	installer Installer
	pool      []models.Endpoint
	proxyType models.ProxyType
	interval  time.Duration
	policy    Policy
	logger    *slog.Logger

	next int
	rng  *rand.Rand
}

func NewDriver(installer Installer, pool []models.Endpoint, proxyType models.ProxyType, interval time.Duration, policy Policy, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	poolCopy := make([]models.Endpoint, len(pool))
	copy(poolCopy, pool)
	return &Driver{
		installer: installer,
		pool:      poolCopy,
		proxyType: proxyType,
		interval:  interval,
		policy:    policy,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run cycles select, install, sleep until ctx is cancelled. A failed
// install is logged and the next cycle proceeds with a fresh selection;
// transient file contention never kills the rotation. Run returns
// ErrEmptyPool without starting a cycle when there is nothing to rotate.
func (d *Driver) Run(ctx context.Context) error {
	if len(d.pool) == 0 {
		return ErrEmptyPool
	}

	d.logger.Info("Entering rotation mode", "poolSize", len(d.pool), "interval", d.interval, "policy", d.policy)

	for {
		if ctx.Err() != nil {
			d.logger.Info("Rotation stopped")
			return nil
		}

		ep := d.selectEndpoint()
		d.logger.Info("Rotating to proxy", "endpoint", ep, "proxyType", d.proxyType)
		if err := d.installer.InstallSingle(ep, d.proxyType); err != nil {
			d.logger.Warn("Failed to install proxy, retrying next cycle", "endpoint", ep, "error", err)
		} else {
			d.logger.Info("Proxy installed", "endpoint", ep)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Rotation stopped")
			return nil
		case <-time.After(d.interval):
		}
	}
}

func (d *Driver) selectEndpoint() models.Endpoint {
	switch d.policy {
	case PolicyRoundRobin:
		ep := d.pool[d.next%len(d.pool)]
		d.next++
		return ep
	default:
		return d.pool[d.rng.Intn(len(d.pool))]
	}
}
