// Package config defines the settings shared by alarm-server and
// alarm-client and provides helpers to load, validate and save them in YAML
// format.
//
// The Config type holds the gRPC address, store and notifier selection,
// retention and timeouts; Validate fills defaults for everything optional.
package config
