package primitives

import "math/big"

// maxTarget256 is 2^256, used as the dividend when converting a
// difficulty target into a chainwork increment (spec §4.1 step 3,
// GLOSSARY "Chainwork").
var maxTarget256 = new(big.Int).Lsh(big.NewInt(1), 256)

// one is reused to avoid reallocating it on every call.
var one = big.NewInt(1)

// TargetFromBits expands the compact "bits" encoding (identical to
// Bitcoin's nBits) into the full 256-bit target threshold.
func TargetFromBits(bits uint32) *big.Int {
	exponent := uint(bits >> 24)
	mantissa := new(big.Int).SetUint64(uint64(bits & 0x007fffff))

	var target *big.Int
	if exponent <= 3 {
		target = new(big.Int).Rsh(mantissa, 8*(3-exponent))
	} else {
		target = new(big.Int).Lsh(mantissa, 8*(exponent-3))
	}

	if bits&0x00800000 != 0 {
		// Negative-target encodings never occur in a valid chain; treat
		// as zero so callers see an (unsatisfiable) zero-work increment
		// rather than panicking on a corrupt header.
		return big.NewInt(0)
	}
	return target
}

// WorkFromBits computes floor(2^256 / (target+1)), the chainwork
// increment a single header contributes (spec §4.1, GLOSSARY).
func WorkFromBits(bits uint32) *big.Int {
	target := TargetFromBits(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denom := new(big.Int).Add(target, one)
	return new(big.Int).Div(maxTarget256, denom)
}
