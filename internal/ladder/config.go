package ladder

import (
	"fmt"
	"strings"

	"ladder_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Config is the immutable ladder geometry handed to the engine once at construction.
type Config struct {
	RowCount    int
	TickSize    decimal.Decimal
	PriceFormat string // fmt verb applied to each level, e.g. "%.2f"
}

// Validate checks the engine preconditions.
func (c Config) Validate() error {
	if c.RowCount <= 0 {
		return domain.NewConfigError("ladder.row_count", "must be positive, got %d", c.RowCount)
	}
	if !c.TickSize.IsPositive() {
		return domain.NewConfigError("ladder.tick_size", "must be positive, got %s", c.TickSize)
	}
	if !strings.Contains(c.PriceFormat, "%") {
		return domain.NewConfigError("ladder.price_format", "missing format verb in %q", c.PriceFormat)
	}
	return nil
}

func (c Config) formatPrice(p decimal.Decimal) string {
	return fmt.Sprintf(c.PriceFormat, p.InexactFloat64())
}
