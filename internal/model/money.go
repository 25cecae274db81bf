package model

// CentsToUnits converts an amount in cents to whole currency units.
func CentsToUnits(cents int64) float64 { return float64(cents) / 100.0 }
