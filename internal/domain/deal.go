package domain

// Typology classifies the property being audited
type Typology string

const (
	TypologyFamily      Typology = "family"
	TypologyMicroLiving Typology = "micro_living"
	TypologyRenovation  Typology = "renovation"
	TypologyOffPlan     Typology = "off_plan"
)

var typologyLabels = map[Typology]string{
	TypologyFamily:      "Familiar (>50m²)",
	TypologyMicroLiving: "Micro-Living (<35m²)",
	TypologyRenovation:  "Remodelación (Hueso)",
	TypologyOffPlan:     "Sobre Planos",
}

// Label returns the display name used in prompts
func (t Typology) Label() string {
	if label, ok := typologyLabels[t]; ok {
		return label
	}
	return string(t)
}

// Strategy is how the buyer intends to use the property
type Strategy string

const (
	StrategyTraditionalRent Strategy = "traditional_rent"
	StrategyShortTermRent   Strategy = "short_term_rent"
	StrategyOwnUse          Strategy = "own_use"
)

var strategyLabels = map[Strategy]string{
	StrategyTraditionalRent: "Renta Tradicional",
	StrategyShortTermRent:   "Renta Corta (Airbnb)",
	StrategyOwnUse:          "Vivir (Propio)",
}

// Label returns the display name used in prompts
func (s Strategy) Label() string {
	if label, ok := strategyLabels[s]; ok {
		return label
	}
	return string(s)
}

// Typologies lists the accepted typologies in display order
func Typologies() []Typology {
	return []Typology{TypologyFamily, TypologyMicroLiving, TypologyRenovation, TypologyOffPlan}
}

// Strategies lists the accepted strategies in display order
func Strategies() []Strategy {
	return []Strategy{StrategyTraditionalRent, StrategyShortTermRent, StrategyOwnUse}
}

// DefaultOccupancy is the short-term rental occupancy assumed when none is given
const DefaultOccupancy = 55

// MinArea is the smallest accepted area in square metres
const MinArea = 10

// Deal holds the parameters of a property purchase to audit. Amounts are in COP.
type Deal struct {
	Location    string   `json:"location" validate:"required,max=200"`
	Price       int64    `json:"price" validate:"required,gt=0"`
	Area        float64  `json:"area" validate:"omitempty,gte=10"`
	AdminFee    int64    `json:"admin_fee" validate:"gte=0"`
	Typology    Typology `json:"typology" validate:"omitempty,oneof=family micro_living renovation off_plan"`
	Strategy    Strategy `json:"strategy" validate:"omitempty,oneof=traditional_rent short_term_rent own_use"`
	NightlyRate int64    `json:"nightly_rate" validate:"gte=0"`
	Occupancy   *int     `json:"occupancy,omitempty" validate:"omitempty,gte=0,lte=100"`
	MonthlyRent int64    `json:"monthly_rent" validate:"gte=0"`
	Capital     int64    `json:"capital" validate:"gte=0"`
}

// OccupancyOrDefault returns the occupancy percentage, falling back to DefaultOccupancy
func (d Deal) OccupancyOrDefault() int {
	if d.Occupancy == nil {
		return DefaultOccupancy
	}
	return *d.Occupancy
}
