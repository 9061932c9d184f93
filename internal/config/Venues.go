package config

import (
	"errors"
	"strconv"
	"strings"
)

// VenueEndpoint holds connection details and portfolio weight for one venue.
type VenueEndpoint struct {
	Name      string
	RPC       string
	GRPC      string
	WeightBps uint32
	Borrowing bool
}

// Venues holds the configured venue endpoints, in declaration order.
var Venues []VenueEndpoint

// loadVenueConfig reads the venue list and per-venue endpoints.
// IVM_VENUES is a comma-separated list of venue names; each venue needs
// IVM_VENUE_<NAME>_RPC, IVM_VENUE_<NAME>_GRPC, and IVM_VENUE_<NAME>_WEIGHT_BPS.
// IVM_VENUE_<NAME>_BORROWING is optional ("true" enables the leverage extension).
func loadVenueConfig() error {
	listStr, err := getEnv("IVM_VENUES")
	if err != nil {
		return err
	}

	names := strings.Split(listStr, ",")
	if len(names) == 0 {
		return errors.New("IVM_VENUES must name at least one venue")
	}

	Venues = Venues[:0]
	totalWeight := uint32(0)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

		rpc, err := getEnv("IVM_VENUE_" + key + "_RPC")
		if err != nil {
			return err
		}
		grpcEndpoint, err := getEnv("IVM_VENUE_" + key + "_GRPC")
		if err != nil {
			return err
		}
		weight, err := getEnvAsBps("IVM_VENUE_" + key + "_WEIGHT_BPS")
		if err != nil {
			return err
		}

		borrowing := false
		if v, lookupErr := getEnv("IVM_VENUE_" + key + "_BORROWING"); lookupErr == nil {
			borrowing, err = strconv.ParseBool(v)
			if err != nil {
				return errors.New("IVM_VENUE_" + key + "_BORROWING must be a boolean, got: " + v)
			}
		}

		totalWeight += weight
		Venues = append(Venues, VenueEndpoint{
			Name:      name,
			RPC:       rpc,
			GRPC:      grpcEndpoint,
			WeightBps: weight,
			Borrowing: borrowing,
		})
	}

	if len(Venues) == 0 {
		return errors.New("IVM_VENUES must name at least one venue")
	}
	if totalWeight != 10000 {
		return errors.New("venue weights must sum to 10000 bps, got: " + strconv.FormatUint(uint64(totalWeight), 10))
	}
	return nil
}
