package domain

import "strings"

// PrimaryUnit is the unit stock is counted in
type PrimaryUnit string

const (
	UnitKilogram PrimaryUnit = "kg"
	UnitLitre    PrimaryUnit = "lit"
	UnitPiece    PrimaryUnit = "piece"
	UnitCustom   PrimaryUnit = "custom"
)

// IsValid reports whether u is a known primary unit
func (u PrimaryUnit) IsValid() bool {
	switch u {
	case UnitKilogram, UnitLitre, UnitPiece, UnitCustom:
		return true
	}
	return false
}

// SecondaryUnit is an optional bulk unit holding a fixed number of primary units
type SecondaryUnit string

const (
	SecondaryNone    SecondaryUnit = "none"
	SecondaryBag     SecondaryUnit = "bag"
	SecondaryCarton  SecondaryUnit = "carton"
	SecondaryTin     SecondaryUnit = "tin"
	SecondaryPackets SecondaryUnit = "packets"
)

// IsSet reports whether a secondary unit is configured. The empty value
// means the same as none.
func (u SecondaryUnit) IsSet() bool {
	return u != "" && u != SecondaryNone
}

// IsValid reports whether u is a known secondary unit or unset
func (u SecondaryUnit) IsValid() bool {
	switch u {
	case "", SecondaryNone, SecondaryBag, SecondaryCarton, SecondaryTin, SecondaryPackets:
		return true
	}
	return false
}

// ParsePrimaryUnit normalizes case and surrounding space
func ParsePrimaryUnit(s string) PrimaryUnit {
	return PrimaryUnit(strings.ToLower(strings.TrimSpace(s)))
}

// ParseSecondaryUnit normalizes case and surrounding space
func ParseSecondaryUnit(s string) SecondaryUnit {
	return SecondaryUnit(strings.ToLower(strings.TrimSpace(s)))
}

// ToCombined converts a split quantity into primary units:
// primary + secondary × quantityPerSecondary.
func ToCombined(primary, secondary, quantityPerSecondary float64) float64 {
	return primary + secondary*quantityPerSecondary
}
