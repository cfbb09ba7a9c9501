package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Network constraints
	MaxConnections int

	// Connection constraints
	MaxNameLength             int
	MaxEmailLength            int
	MaxRelationshipTypeLength int
	DefaultRelationshipType   string

	// Persistence unit
	MetafieldNamespace string
	MetafieldKey       string
	MetafieldType      string
	SchemaVersion      int

	// Synchronization
	MaxConflictRetries int
	LockTTL            time.Duration
	LockWaitTimeout    time.Duration
	ViewCacheTTL       time.Duration
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxConnections: 250,

		MaxNameLength:             200,
		MaxEmailLength:            254,
		MaxRelationshipTypeLength: 64,
		DefaultRelationshipType:   "friend",

		MetafieldNamespace: "$app:esn",
		MetafieldKey:       "connections",
		MetafieldType:      "json",
		SchemaVersion:      1,

		MaxConflictRetries: 3,
		LockTTL:            10 * time.Second,
		LockWaitTimeout:    2 * time.Second,
		ViewCacheTTL:       30 * time.Second,
	}
}

// Validate checks that the configuration is usable
func (c *DomainConfig) Validate() error {
	if c.MaxConnections <= 0 {
		return errInvalid("MaxConnections must be positive")
	}
	if c.MetafieldNamespace == "" || c.MetafieldKey == "" {
		return errInvalid("metafield namespace and key are required")
	}
	if c.MaxConflictRetries < 0 {
		return errInvalid("MaxConflictRetries cannot be negative")
	}
	return nil
}

type configError string

func (e configError) Error() string { return "invalid domain config: " + string(e) }

func errInvalid(msg string) error { return configError(msg) }
