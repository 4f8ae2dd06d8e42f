package ble

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

var (
	gattServiceUUID  = bluetooth.MustParseUUID(ServiceUUID)
	charNodeNameUUID = bluetooth.MustParseUUID(CharNodeName)
	charSSIDUUID     = bluetooth.MustParseUUID(CharWifiSSID)
	charPasswordUUID = bluetooth.MustParseUUID(CharWifiPassword)
	charUniverseUUID = bluetooth.MustParseUUID(CharUniverse)
	charStartAddrUUID = bluetooth.MustParseUUID(CharDMXStartAddress)
)

// scanTimeout bounds how long Scan waits for the target advertisement
// before giving up.
const scanTimeout = 10 * time.Second

// AdapterDevice implements Device against a real tinygo.org/x/bluetooth
// central connection. It holds at most one outstanding operation per
// channel (connect, discovery, read, write, disconnect) — callers must
// not invoke its methods concurrently for a single instance, matching
// the continuation-delegate invariant of the underlying platform API.
type AdapterDevice struct {
	adapter *bluetooth.Adapter

	device  bluetooth.Device
	chars   map[string]bluetooth.DeviceCharacteristic
	connected bool
}

// NewAdapterDevice wraps the default Bluetooth adapter. Callers must
// call adapter.Enable() once per process before use.
func NewAdapterDevice(adapter *bluetooth.Adapter) *AdapterDevice {
	return &AdapterDevice{adapter: adapter, chars: make(map[string]bluetooth.DeviceCharacteristic)}
}

// Scan blocks until a peripheral advertising ServiceUUID with the
// given local name is found, or ctx is done, returning its address
// string suitable for Connect.
func (a *AdapterDevice) Scan(ctx context.Context, localName string) (string, error) {
	found := make(chan bluetooth.ScanResult, 1)
	errCh := make(chan error, 1)

	go func() {
		err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() != localName {
				return
			}
			if !result.HasServiceUUID(gattServiceUUID) {
				return
			}
			_ = adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	select {
	case res := <-found:
		return res.Address.String(), nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		_ = a.adapter.StopScan()
		return "", ctx.Err()
	}
}

// Connect implements Device.
func (a *AdapterDevice) Connect(ctx context.Context, deviceID string) error {
	addr, err := bluetooth.ParseDeviceAddress(deviceID)
	if err != nil {
		return fmt.Errorf("ble: invalid device address %q: %w", deviceID, err)
	}

	dev, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("ble: connect failed: %w", err)
	}
	a.device = dev
	a.connected = true

	services, err := dev.DiscoverServices([]bluetooth.UUID{gattServiceUUID})
	if err != nil || len(services) == 0 {
		return fmt.Errorf("ble: provisioning service not found: %w", err)
	}

	chars, err := services[0].DiscoverCharacteristics(nil)
	if err != nil {
		return fmt.Errorf("ble: characteristic discovery failed: %w", err)
	}
	for _, c := range chars {
		a.chars[c.UUID().String()] = c
	}
	return nil
}

// ReadConfig implements Device.
func (a *AdapterDevice) ReadConfig(ctx context.Context) (*NodeConfig, error) {
	name, err := a.readString(charNodeNameUUID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrNoConfig
	}
	ssid, err := a.readString(charSSIDUUID)
	if err != nil {
		return nil, err
	}
	universe, err := a.readUint16(charUniverseUUID)
	if err != nil {
		return nil, err
	}
	start, err := a.readUint16(charStartAddrUUID)
	if err != nil {
		return nil, err
	}
	return &NodeConfig{
		Name:            name,
		WifiSSID:        ssid,
		Universe:        int(universe),
		DMXStartAddress: int(start),
	}, nil
}

// WriteConfig implements Device.
func (a *AdapterDevice) WriteConfig(ctx context.Context, cfg NodeConfig) error {
	writes := []struct {
		uuid bluetooth.UUID
		data []byte
	}{
		{charNodeNameUUID, []byte(cfg.Name)},
		{charSSIDUUID, []byte(cfg.WifiSSID)},
		{charPasswordUUID, []byte(cfg.WifiPassword)},
		{charUniverseUUID, encodeUint16LE(uint16(cfg.Universe))},
		{charStartAddrUUID, encodeUint16LE(uint16(cfg.DMXStartAddress))},
	}
	for _, w := range writes {
		c, ok := a.chars[w.uuid.String()]
		if !ok {
			return fmt.Errorf("ble: characteristic %s not discovered", w.uuid.String())
		}
		if _, err := c.WriteWithoutResponse(w.data); err != nil {
			return fmt.Errorf("ble: write %s failed: %w", w.uuid.String(), err)
		}
	}
	return nil
}

// Disconnect implements Device.
func (a *AdapterDevice) Disconnect(ctx context.Context) error {
	if !a.connected {
		return nil
	}
	a.connected = false
	return a.device.Disconnect()
}

func (a *AdapterDevice) readString(uuid bluetooth.UUID) (string, error) {
	c, ok := a.chars[uuid.String()]
	if !ok {
		return "", fmt.Errorf("ble: characteristic %s not discovered", uuid.String())
	}
	buf := make([]byte, 128)
	n, err := c.Read(buf)
	if err != nil {
		return "", fmt.Errorf("ble: read %s failed: %w", uuid.String(), err)
	}
	return string(buf[:n]), nil
}

func (a *AdapterDevice) readUint16(uuid bluetooth.UUID) (uint16, error) {
	c, ok := a.chars[uuid.String()]
	if !ok {
		return 0, fmt.Errorf("ble: characteristic %s not discovered", uuid.String())
	}
	buf := make([]byte, 2)
	n, err := c.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("ble: read %s failed: %w", uuid.String(), err)
	}
	v, ok := decodeUint16LE(buf[:n])
	if !ok {
		return 0, fmt.Errorf("ble: short read on %s", uuid.String())
	}
	return v, nil
}

var _ Device = (*AdapterDevice)(nil)
