package orders

import (
	"fmt"

	"farmlink/internal/models"
)

// FindByLotID looks a lot up in an in-memory order collection. It does not
// modify orders; an unknown lot is ErrNotFound.
func FindByLotID(orders []models.Order, lotID string) (models.Lot, error) {
	for i := range orders {
		if orders[i].LotID == lotID {
			return models.LotFromOrder(&orders[i]), nil
		}
	}
	return models.Lot{}, fmt.Errorf("lot %s: %w", lotID, models.ErrNotFound)
}
