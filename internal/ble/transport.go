package ble

import "context"

// Advertisement is one observed BLE broadcast
type Advertisement struct {
	Address          string
	LocalName        string
	RSSI             int16
	ManufacturerData []byte // payload of the newest manufacturer data element
}

// Characteristic represents a BLE GATT characteristic
type Characteristic interface {
	// Write sends data to the characteristic without waiting for a response
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic
	Subscribe(callback func(data []byte)) error
	// Unsubscribe stops notifications
	Unsubscribe() error
}

// Connection represents an active BLE connection to a peripheral
type Connection interface {
	// Characteristic finds a characteristic by UUID, searching all services
	Characteristic(uuid string) (Characteristic, error)
	// Disconnect terminates the connection
	Disconnect() error
}

// Adapter abstracts the BLE radio for testing
type Adapter interface {
	// Scan streams advertisements to fn until ctx is cancelled. A scan
	// ended by ctx returns nil.
	Scan(ctx context.Context, fn func(Advertisement)) error
	// Connect establishes a connection to the device with the given address
	Connect(ctx context.Context, address string) (Connection, error)
}
