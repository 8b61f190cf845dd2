package biometric

import (
	"fmt"
	"os"
	"time"

	"faceguard.io/infrastructure/biometric/faceguard"
	"faceguard.io/infrastructure/biometric/prembly"
	"faceguard.io/infrastructure/biometric/types"
	"faceguard.io/infrastructure/network"
)

// NewProvider builds the recognition provider named by BIOMETRIC_PROVIDER.
// Vendor credentials and base urls come from the environment; the request
// timeout is passed in so the caller's config stays the single source of truth.
func NewProvider(timeout time.Duration) (types.RecognitionProvider, error) {
	vendor := os.Getenv("BIOMETRIC_PROVIDER")
	switch vendor {
	case "", "faceguard":
		return &faceguard.FaceGuardEngine{
			Network: &network.NetworkController{
				BaseUrl: os.Getenv("FACEGUARD_ENGINE_BASE_URL"),
				Timeout: timeout,
			},
			APIKey: os.Getenv("FACEGUARD_ENGINE_API_KEY"),
		}, nil
	case "prembly":
		return &prembly.PremblyBiometricService{
			Network: &network.NetworkController{
				BaseUrl: os.Getenv("PREMBLY_BASE_URL"),
				Timeout: timeout,
			},
			APIKey: os.Getenv("PREMBLY_API_KEY"),
			AppID:  os.Getenv("PREMBLY_APP_ID"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown biometric provider %q", vendor)
	}
}
