package domain

// CheckRecord applies the per-record quality rules and returns the first
// violated rule as a machine-readable reason, or "" when the record is clean.
func CheckRecord(r PriceRecord) string {
	switch {
	case r.Open.Sign() <= 0:
		return "open not positive"
	case r.High.Sign() <= 0:
		return "high not positive"
	case r.Low.Sign() <= 0:
		return "low not positive"
	case r.Close.Sign() <= 0:
		return "close not positive"
	case r.High.LessThan(r.Low):
		return "high below low"
	case r.High.LessThan(r.Open):
		return "high below open"
	case r.High.LessThan(r.Close):
		return "high below close"
	case r.Low.GreaterThan(r.Open):
		return "low above open"
	case r.Low.GreaterThan(r.Close):
		return "low above close"
	case r.Volume < 0:
		return "negative volume"
	}
	return ""
}
