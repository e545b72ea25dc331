package shared

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "unknown"
	}
}

// Condition represents an entry sub-condition evaluated by a strategy.
type Condition int

const (
	IndicatorsDefined Condition = iota
	BullishCross
	BearishCross
	ConversionAboveCloud
	ConversionBelowCloud
	BaseAboveCloud
	BaseBelowCloud
	CloseAboveHigh26
	CloseBelowLow26
	CloseAboveConversion
	CloseBelowConversion
	ConversionRising
	ConversionFalling
)

// String stringifies the provided condition.
func (c Condition) String() string {
	switch c {
	case IndicatorsDefined:
		return "indicators defined"
	case BullishCross:
		return "bullish cross"
	case BearishCross:
		return "bearish cross"
	case ConversionAboveCloud:
		return "conversion above cloud"
	case ConversionBelowCloud:
		return "conversion below cloud"
	case BaseAboveCloud:
		return "base above cloud"
	case BaseBelowCloud:
		return "base below cloud"
	case CloseAboveHigh26:
		return "close above high 26"
	case CloseBelowLow26:
		return "close below low 26"
	case CloseAboveConversion:
		return "close above conversion"
	case CloseBelowConversion:
		return "close below conversion"
	case ConversionRising:
		return "conversion rising"
	case ConversionFalling:
		return "conversion falling"
	default:
		return "unknown"
	}
}

// ExitReason represents the reason a position was closed.
type ExitReason int

const (
	TakeProfit ExitReason = iota
	StopLoss
)

// String stringifies the provided exit reason.
func (r ExitReason) String() string {
	switch r {
	case TakeProfit:
		return "take profit"
	case StopLoss:
		return "stop loss"
	default:
		return "unknown"
	}
}
