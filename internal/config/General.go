package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Account is the settlement account the vault transacts from.
	Account string
	// SettlementAsset is the accounting currency denom (e.g. "usdc").
	SettlementAsset string
	// DonationRecipient identifies the public-goods recipient.
	DonationRecipient string

	// HarvestInterval is how often the keeper attempts a portfolio harvest.
	HarvestInterval time.Duration
	// HarvestCooldown is the per-adapter minimum interval between harvests.
	HarvestCooldown time.Duration
	// WithdrawCooldown is the per-depositor delay between deposit and withdrawal.
	WithdrawCooldown time.Duration

	// DonationBps is the default donation rate for new adapters.
	DonationBps uint32
	// BufferBps is the default idle buffer fraction for new adapters.
	BufferBps uint32
	// MinDonation is the default minimum-donation floor in settlement units.
	MinDonation int64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Account, err = getEnv("IVM_ACCOUNT")
	if err != nil {
		return err
	}

	SettlementAsset, err = getEnv("IVM_SETTLEMENT_ASSET")
	if err != nil {
		return err
	}

	DonationRecipient, err = getEnv("IVM_DONATION_RECIPIENT")
	if err != nil {
		return err
	}

	HarvestInterval, err = getEnvAsDuration("IVM_HARVEST_INTERVAL")
	if err != nil {
		return err
	}

	HarvestCooldown, err = getEnvAsDuration("IVM_HARVEST_COOLDOWN")
	if err != nil {
		return err
	}

	WithdrawCooldown, err = getEnvAsDuration("IVM_WITHDRAW_COOLDOWN")
	if err != nil {
		return err
	}

	DonationBps, err = getEnvAsBps("IVM_DONATION_BPS")
	if err != nil {
		return err
	}

	BufferBps, err = getEnvAsBps("IVM_BUFFER_BPS")
	if err != nil {
		return err
	}

	MinDonation, err = getEnvAsInt64("IVM_MIN_DONATION")
	if err != nil {
		return err
	}

	// Load venue endpoint configuration
	if err := loadVenueConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("Account", Account).
		Str("SettlementAsset", SettlementAsset).
		Str("DonationRecipient", DonationRecipient).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsBps retrieves an environment variable as basis points (0-10000).
func getEnvAsBps(key string) (uint32, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil || value > 10000 {
		return 0, errors.New("environment variable " + key + " must be basis points in [0, 10000], got: " + valueStr)
	}
	return uint32(value), nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration.
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration (e.g. \"6h\"), got: " + valueStr)
	}
	return value, nil
}
