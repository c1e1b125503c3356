package enums

// TipType selects how a tip value is interpreted: percentage of subtotal or flat cents.
type TipType string

const (
	TipTypePercentage TipType = "percentage"
	TipTypeFlat       TipType = "flat"
)

var tipTypes = []TipType{TipTypePercentage, TipTypeFlat}

func (t TipType) String() string { return string(t) }

func (t TipType) IsValid() bool { return oneOf(t, tipTypes) }

func ParseTipType(value string) (TipType, error) {
	return parse("tip type", value, tipTypes, false)
}
