package shared

import "testing"

func TestDirectionString(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		want      string
	}{
		{"long", Long, "Long"},
		{"short", Short, "Short"},
		{"unknown", Direction(999), "unknown"},
	}

	for _, test := range tests {
		str := test.direction.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestConditionString(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		want      string
	}{
		{"indicators defined", IndicatorsDefined, "indicators defined"},
		{"bullish cross", BullishCross, "bullish cross"},
		{"bearish cross", BearishCross, "bearish cross"},
		{"conversion above cloud", ConversionAboveCloud, "conversion above cloud"},
		{"conversion below cloud", ConversionBelowCloud, "conversion below cloud"},
		{"base above cloud", BaseAboveCloud, "base above cloud"},
		{"base below cloud", BaseBelowCloud, "base below cloud"},
		{"close above high 26", CloseAboveHigh26, "close above high 26"},
		{"close below low 26", CloseBelowLow26, "close below low 26"},
		{"close above conversion", CloseAboveConversion, "close above conversion"},
		{"close below conversion", CloseBelowConversion, "close below conversion"},
		{"conversion rising", ConversionRising, "conversion rising"},
		{"conversion falling", ConversionFalling, "conversion falling"},
		{"unknown", Condition(999), "unknown"},
	}

	for _, test := range tests {
		str := test.condition.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestExitReasonString(t *testing.T) {
	tests := []struct {
		name   string
		reason ExitReason
		want   string
	}{
		{"take profit", TakeProfit, "take profit"},
		{"stop loss", StopLoss, "stop loss"},
		{"unknown", ExitReason(999), "unknown"},
	}

	for _, test := range tests {
		str := test.reason.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}
