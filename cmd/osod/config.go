package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/naoina/toml"

	"github.com/jbino85/techgnosis/validator"
)

// config is the TOML file the daemon boots from.
type config struct {
	// NodeID is this node's validator address.
	NodeID string
	// Threshold is the finality threshold; zero selects the standard
	// council threshold when thirteen validators are listed.
	Threshold uint64
	// DataDir enables the block archive when non-empty.
	DataDir string
	// Validators lists the full council.
	Validators []validatorConfig
}

type validatorConfig struct {
	Address string
	// PublicKey is the hex-encoded 32-byte Ed25519 public key.
	PublicKey string
	// Power defaults to 1 when omitted.
	Power uint64
}

func loadConfig(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg config
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %v", path, err)
	}
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("%s: node id must be set", path)
	}
	return &cfg, nil
}

// councilFrom converts the configured validators into the typed council.
func councilFrom(cfg *config) ([]validator.Validator, error) {
	council := make([]validator.Validator, 0, len(cfg.Validators))
	for _, vc := range cfg.Validators {
		raw, err := hex.DecodeString(vc.PublicKey)
		if err != nil || len(raw) != validator.PublicKeySize {
			return nil, fmt.Errorf("validator %s: bad public key", vc.Address)
		}
		var pub [validator.PublicKeySize]byte
		copy(pub[:], raw)
		power := vc.Power
		if power == 0 {
			power = 1
		}
		council = append(council, validator.NewWithPower(vc.Address, pub, power))
	}
	return council, nil
}
