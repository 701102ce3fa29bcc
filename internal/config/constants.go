package config

import "dashcli/pkg/contracts"

// Application constants
const (
	AppName    = "dashcli"
	AppVersion = contracts.Version
)
