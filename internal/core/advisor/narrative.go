package advisor

import (
	"fmt"
	"math"
	"strings"

	"dairy-advisor/internal/core/series"
)

// money 四捨五入到兩位小數並以西班牙語系格式輸出
func money(v float64) string {
	return series.FormatLocaleNumber(math.Round(v*100) / 100)
}

// narrative 推薦的說明文字，僅供顯示
func narrative(rec *Recommendation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "En %s se espera un acopio de %s litros y un precio de %s COP/litro.",
		rec.BestMonthName, money(rec.ForecastVolume), money(rec.ForecastPrice))

	if rec.ProfitabilityAvailable && rec.ProfitabilityEstimate != nil {
		fmt.Fprintf(&b, " Rentabilidad estimada: %s COP/litro.", money(*rec.ProfitabilityEstimate))
	} else {
		b.WriteString(" Rentabilidad no disponible.")
	}

	if len(rec.CandidateRegions) > 0 {
		best := rec.CandidateRegions[0]
		fmt.Fprintf(&b, " Para %d vacas %s, %s produciría cerca de %s litros diarios (%s al mes).",
			rec.HerdSize, rec.Breed.Name, best.Region, money(best.DailyVolumeEstimate), money(best.MonthlyVolumeEstimate))
	}

	if rec.NonForecastBased {
		b.WriteString(" Estimación basada en el último valor conocido por falta de datos históricos.")
	}

	return b.String()
}
