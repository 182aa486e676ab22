// internal/utils/money.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatGHS renders an amount in pesewas as "GHS 9,900.00".
func FormatGHS(pesewas int64) string {
	sign := ""
	if pesewas < 0 {
		sign = "-"
		pesewas = -pesewas
	}
	cedis := strconv.FormatInt(pesewas/100, 10)

	var b strings.Builder
	for i, r := range cedis {
		if i > 0 && (len(cedis)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return fmt.Sprintf("%sGHS %s.%02d", sign, b.String(), pesewas%100)
}
