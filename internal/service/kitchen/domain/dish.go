package domain

import (
	"fmt"

	"brigade/internal/contracts"
)

// Dish is one dish-balance row of the inventory ledger. Balance never rests
// below zero: an adjustment that would drive it negative is rejected whole.
type Dish struct {
	ID        int64
	ShortName string
	Balance   int
	Cost      float64
}

// CheckAvailability is the pure preview rule shared by the pre-check
// endpoint and the reservation path: given the current dishes, report every
// line that cannot be covered. Unknown dishes are reported with a zero
// available balance.
func CheckAvailability(dishes []Dish, lines []contracts.ValidationLine) []contracts.InsufficiencyLine {
	byID := make(map[int64]Dish, len(dishes))
	for _, d := range dishes {
		byID[d.ID] = d
	}

	var insufficient []contracts.InsufficiencyLine
	for _, line := range lines {
		dish, ok := byID[line.DishID]
		if !ok {
			insufficient = append(insufficient, contracts.InsufficiencyLine{
				DishID:    line.DishID,
				Requested: line.Quantity,
			})
			continue
		}
		if dish.Balance < line.Quantity {
			insufficient = append(insufficient, contracts.InsufficiencyLine{
				DishID:    dish.ID,
				DishName:  dish.ShortName,
				Available: dish.Balance,
				Requested: line.Quantity,
			})
		}
	}
	return insufficient
}

// RenderInsufficiency formats one report line for humans.
func RenderInsufficiency(l contracts.InsufficiencyLine) string {
	if l.DishName == "" {
		return fmt.Sprintf("dish with id %d not found", l.DishID)
	}
	return fmt.Sprintf("dish %d (%s): available %d, requested %d", l.DishID, l.DishName, l.Available, l.Requested)
}

// InsufficiencyError carries the structured per-line report of a failed
// reservation or preview; it is never collapsed to a single opaque message.
type InsufficiencyError struct {
	Lines []contracts.InsufficiencyLine
}

func (e *InsufficiencyError) Error() string {
	msg := "insufficient dish balance:"
	for _, l := range e.Lines {
		msg += " " + RenderInsufficiency(l) + ";"
	}
	return msg
}
