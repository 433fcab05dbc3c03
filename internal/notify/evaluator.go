package notify

// Compare applies an alert operator to a metric value and threshold.
// Unknown operators never match.
func Compare(operator string, value, threshold float64) bool {
	switch operator {
	case OperatorGT:
		return value > threshold
	case OperatorLT:
		return value < threshold
	case OperatorGTE:
		return value >= threshold
	case OperatorLTE:
		return value <= threshold
	case OperatorEQ:
		return value == threshold
	case OperatorNE:
		return value != threshold
	default:
		return false
	}
}

// operatorSymbols renders operators in human readable messages.
var operatorSymbols = map[string]string{
	OperatorGT:  ">",
	OperatorLT:  "<",
	OperatorGTE: "≥",
	OperatorLTE: "≤",
	OperatorEQ:  "=",
	OperatorNE:  "≠",
}

func operatorSymbol(op string) string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return op
}
