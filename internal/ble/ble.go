// Package ble implements the provisioning state machine that
// configures edge nodes over a defined GATT service: scan, connect,
// read, write, verify.
package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ServiceUUID is the GATT service that exposes node provisioning
// characteristics.
const ServiceUUID = "4368726f-6d61-444d-5800-000000000001"

// Characteristic UUIDs within ServiceUUID.
const (
	CharNodeName         = "4368726f-6d61-444d-5800-000000000010"
	CharWifiSSID         = "4368726f-6d61-444d-5800-000000000011"
	CharWifiPassword     = "4368726f-6d61-444d-5800-000000000012"
	CharUniverse         = "4368726f-6d61-444d-5800-000000000013"
	CharDMXStartAddress  = "4368726f-6d61-444d-5800-000000000014"
	CharProvisionedFlag  = "4368726f-6d61-444d-5800-000000000015"
	CharFirmwareVersion  = "4368726f-6d61-444d-5800-000000000016"
	CharCommand          = "4368726f-6d61-444d-5800-000000000020"
)

// ProvisionedFlag is the status reported on CharProvisionedFlag.
type ProvisionedFlag uint8

const (
	FlagNotProvisioned ProvisionedFlag = 0
	FlagProvisioned     ProvisionedFlag = 1
	FlagProvisioning    ProvisionedFlag = 2
	FlagWifiConnecting  ProvisionedFlag = 3
	FlagWifiConnected   ProvisionedFlag = 4
	FlagError           ProvisionedFlag = 0xFF
)

// Command is a value written to CharCommand.
type Command uint8

const (
	CommandApply        Command = 1
	CommandReboot       Command = 2
	CommandFactoryReset Command = 3
	CommandEnterDFU     Command = 4
)

// State is a node of the provisioning state machine.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateReadingConfig
	StateWritingConfig
	StateVerifying
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateConnecting:
		return "CONNECTING"
	case StateReadingConfig:
		return "READING_CONFIG"
	case StateWritingConfig:
		return "WRITING_CONFIG"
	case StateVerifying:
		return "VERIFYING"
	case StateSuccess:
		return "SUCCESS"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// NodeConfig is the set of values written to and read back from a
// node's provisioning characteristics.
type NodeConfig struct {
	Name            string
	WifiSSID        string
	WifiPassword    string
	Universe        int
	DMXStartAddress int
}

// Validate checks NodeConfig's invariants, returning the first
// violation found, in field order.
func (c NodeConfig) Validate() error {
	if c.Name == "" || len(c.Name) > 32 {
		return errors.New("name must be non-empty and at most 32 characters")
	}
	if c.WifiSSID == "" || len(c.WifiSSID) > 32 {
		return errors.New("wifiSsid must be non-empty and at most 32 characters")
	}
	if len(c.WifiPassword) > 64 {
		return errors.New("wifiPassword must be at most 64 characters")
	}
	if c.Universe < 0 || c.Universe > 32767 {
		return errors.New("universe must be in [0, 32767]")
	}
	if c.DMXStartAddress < 1 || c.DMXStartAddress > 512 {
		return errors.New("dmxStartAddress must be in [1, 512]")
	}
	return nil
}

// Device is the minimal GATT device surface the state machine drives.
// A concrete implementation wraps a BLE stack's connection/characteristic
// handles; tests supply a fake.
type Device interface {
	Connect(ctx context.Context, deviceID string) error
	ReadConfig(ctx context.Context) (*NodeConfig, error)
	WriteConfig(ctx context.Context, cfg NodeConfig) error
	Disconnect(ctx context.Context) error
}

// ErrProvisioningFailed wraps the underlying cause of a provisioning
// failure at any state.
type ErrProvisioningFailed struct {
	State State
	Err   error
}

func (e *ErrProvisioningFailed) Error() string {
	return fmt.Sprintf("provisioning failed in state %s: %v", e.State, e.Err)
}

func (e *ErrProvisioningFailed) Unwrap() error { return e.Err }

// verifyDelay is the pause between writing configuration and reading
// it back, giving the node time to persist and reflect it.
var verifyDelay = 200 * time.Millisecond

// Machine drives a single node's provisioning session. It is not
// reused across concurrent provision() calls — each call owns the
// machine's state for its duration.
type Machine struct {
	mu    sync.RWMutex
	state State
	err   error

	lastProvisionedConfig *NodeConfig

	device Device

	statusCallback func(State)
}

// NewMachine creates a Machine in IDLE, driving the given device.
func NewMachine(device Device) *Machine {
	return &Machine{state: StateIdle, device: device}
}

// SetStatusCallback registers a callback invoked on every state
// transition.
func (m *Machine) SetStatusCallback(cb func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCallback = cb
}

// State returns the machine's current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastError returns the error that caused the most recent ERROR
// transition, if any.
func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// LastProvisionedConfig returns the most recently verified config, if
// any provisioning session has succeeded.
func (m *Machine) LastProvisionedConfig() *NodeConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastProvisionedConfig
}

// Reset transitions SUCCESS or ERROR back to IDLE. It is a no-op from
// any other state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateSuccess || m.state == StateError {
		m.setLocked(StateIdle)
		m.err = nil
	}
}

func (m *Machine) setLocked(s State) {
	m.state = s
	cb := m.statusCallback
	if cb != nil {
		cb(s)
	}
}

func (m *Machine) transition(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(s)
}

func (m *Machine) fail(s State, err error) error {
	m.mu.Lock()
	m.setLocked(StateError)
	wrapped := &ErrProvisioningFailed{State: s, Err: err}
	m.err = wrapped
	m.mu.Unlock()
	return wrapped
}

// Provision runs the full scan→connect→read→write→verify sequence
// against deviceID, writing cfg. On any failure it transitions to
// ERROR and returns the error; on success it transitions to SUCCESS,
// publishes LastProvisionedConfig, and returns the verified config.
//
// Cancellation is cooperative: ctx is checked at each suspension
// point, and a cancelled context triggers a best-effort disconnect
// before the cancellation is returned.
func (m *Machine) Provision(ctx context.Context, deviceID string, cfg NodeConfig) (*NodeConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, m.fail(StateIdle, err)
	}

	m.transition(StateConnecting)
	if err := m.device.Connect(ctx, deviceID); err != nil {
		return nil, m.fail(StateConnecting, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, m.cancel(ctx, StateConnecting, err)
	}

	m.transition(StateReadingConfig)
	// A null/absent current config is tolerated; only a transport
	// error here is fatal to the session.
	if _, err := m.device.ReadConfig(ctx); err != nil && !errors.Is(err, ErrNoConfig) {
		_ = m.device.Disconnect(ctx)
		return nil, m.fail(StateReadingConfig, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, m.cancel(ctx, StateReadingConfig, err)
	}

	m.transition(StateWritingConfig)
	if err := m.device.WriteConfig(ctx, cfg); err != nil {
		_ = m.device.Disconnect(ctx)
		return nil, m.fail(StateWritingConfig, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, m.cancel(ctx, StateWritingConfig, err)
	}

	m.transition(StateVerifying)
	select {
	case <-ctx.Done():
		return nil, m.cancel(ctx, StateVerifying, ctx.Err())
	case <-time.After(verifyDelay):
	}
	verified, err := m.device.ReadConfig(ctx)
	if err != nil || verified == nil {
		if err == nil {
			err = ErrVerificationFailed
		}
		_ = m.device.Disconnect(ctx)
		return nil, m.fail(StateVerifying, err)
	}

	_ = m.device.Disconnect(ctx)

	m.mu.Lock()
	m.setLocked(StateSuccess)
	cp := *verified
	m.lastProvisionedConfig = &cp
	m.mu.Unlock()

	return verified, nil
}

func (m *Machine) cancel(ctx context.Context, s State, cause error) error {
	_ = m.device.Disconnect(context.Background())
	return m.fail(s, cause)
}

// ErrNoConfig is returned by Device.ReadConfig when the node has no
// stored configuration yet; Provision tolerates this at the initial
// read.
var ErrNoConfig = errors.New("ble: node has no stored configuration")

// ErrVerificationFailed is used when a post-write read returns no
// data without a transport error.
var ErrVerificationFailed = errors.New("ble: verification read returned no data")
