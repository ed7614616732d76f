package config

import (
	"errors"
)

// Configuration failures split into two kinds callers can test with
// errors.Is. ErrLoadConfig wraps provider failures: an unreadable YAML file
// named by CLIPSCORE_CONFIG, malformed CLIPSCORE_* env values, or an
// unmarshal mismatch. ErrInvalidConfig marks settings that parsed fine but
// cannot run the service, such as an empty listen address or a missing
// model or cascade path.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
