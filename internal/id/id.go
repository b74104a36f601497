package id

import "github.com/google/uuid"

// GenerateID creates a random UUIDv4 string for sessions and attempts.
func GenerateID() string {
	return uuid.NewString()
}

// Valid reports whether s looks like an id produced by GenerateID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
