package audit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rrens/gladius/internal/domain"
)

// Disclaimer is shown under every report
const Disclaimer = "💡 Este reporte es una simulación basada en IA. No constituye asesoría financiera legal."

// GrossIncome returns the estimated monthly gross income of the deal.
// Short-term rentals use nightly rate × 30 × occupancy; other strategies use the reported rent.
func GrossIncome(d domain.Deal) float64 {
	if d.Strategy == domain.StrategyShortTermRent {
		return float64(d.NightlyRate) * 30 * float64(d.OccupancyOrDefault()) / 100
	}
	return float64(d.MonthlyRent)
}

// PricePerM2 returns the purchase price per square metre, or false when the area is unknown
func PricePerM2(d domain.Deal) (float64, bool) {
	if d.Area <= 0 {
		return 0, false
	}
	return float64(d.Price) / d.Area, true
}

// FormatCOP renders an amount rounded to whole pesos with thousands separators
func FormatCOP(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String()
}

// BuildPrompt renders the opening audit request for a prepared deal
func BuildPrompt(d domain.Deal, intel string) string {
	var b strings.Builder

	b.WriteString("AUDITAR ESTE NEGOCIO:\n")
	fmt.Fprintf(&b, "- Ubicación: %s\n", d.Location)
	fmt.Fprintf(&b, "- Tipología: %s\n", d.Typology.Label())
	fmt.Fprintf(&b, "- Estrategia: %s\n", d.Strategy.Label())
	fmt.Fprintf(&b, "- Precio Compra: %s\n", FormatCOP(float64(d.Price)))
	if d.Area > 0 {
		fmt.Fprintf(&b, "- Área: %s m2\n", strconv.FormatFloat(d.Area, 'f', -1, 64))
	}
	if perM2, ok := PricePerM2(d); ok {
		fmt.Fprintf(&b, "- Precio por m²: %s\n", FormatCOP(perM2))
	}
	if d.Strategy == domain.StrategyShortTermRent {
		fmt.Fprintf(&b, "- Tarifa Noche Promedio: %s\n", FormatCOP(float64(d.NightlyRate)))
		fmt.Fprintf(&b, "- Ocupación Estimada: %d%%\n", d.OccupancyOrDefault())
	}
	fmt.Fprintf(&b, "- Ingreso Bruto Reportado: %s\n", FormatCOP(GrossIncome(d)))
	fmt.Fprintf(&b, "- Administración: %s\n", FormatCOP(float64(d.AdminFee)))
	fmt.Fprintf(&b, "- Capital Disponible: %s\n", FormatCOP(float64(d.Capital)))

	if intel = strings.TrimSpace(intel); intel != "" {
		b.WriteString("\nINTELIGENCIA DE MERCADO:\n")
		b.WriteString(intel)
		b.WriteString("\n")
	}

	return b.String()
}

// IntelQuery is the web search issued to gather market context for a deal
func IntelQuery(d domain.Deal) string {
	switch d.Strategy {
	case domain.StrategyShortTermRent:
		return fmt.Sprintf("tarifa promedio airbnb ocupación %s", d.Location)
	case domain.StrategyOwnUse:
		return fmt.Sprintf("precio metro cuadrado vivienda %s", d.Location)
	}
	return fmt.Sprintf("precio metro cuadrado arriendo %s", d.Location)
}
