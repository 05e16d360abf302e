package utils

import (
	"fmt"
	"math"
)

// FormatCurrencyIDR -> format nilai rupiah dengan pemisah ribuan,
// contoh 35000.5 menjadi "Rp 35.000,50"
func FormatCurrencyIDR(amount float64) string {
	integer := math.Floor(amount)
	decimal := amount - integer

	integerStr := ""
	intTemp := integer

	if intTemp == 0 {
		integerStr = "0"
	}

	// Susun bagian integer dari belakang, per tiga digit
	for intTemp > 0 {
		remainder := int(math.Mod(intTemp, 1000))

		if intTemp >= 1000 {
			// Kelompok tengah perlu leading zero, mis. 1.005.000
			if remainder < 10 {
				integerStr = fmt.Sprintf(".00%d%s", remainder, integerStr)
			} else if remainder < 100 {
				integerStr = fmt.Sprintf(".0%d%s", remainder, integerStr)
			} else {
				integerStr = fmt.Sprintf(".%d%s", remainder, integerStr)
			}
		} else {
			integerStr = fmt.Sprintf("%d%s", remainder, integerStr)
		}

		intTemp = math.Floor(intTemp / 1000)
	}

	// Sen hanya ditulis kalau memang ada
	if decimal > 0 {
		decimal = math.Round(decimal*100) / 100
		decimalStr := fmt.Sprintf("%02.0f", decimal*100)
		return fmt.Sprintf("Rp %s,%s", integerStr, decimalStr)
	}

	return fmt.Sprintf("Rp %s", integerStr)
}
