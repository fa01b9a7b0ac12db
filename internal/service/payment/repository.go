package payment

import (
	"context"
	"errors"

	"monger-backend/internal/database"
	"monger-backend/internal/model"
)

// ErrAlreadyProcessed marks a webhook redelivery: the order for this intent id
// is already archived. It is the success case of idempotency, not a failure.
var ErrAlreadyProcessed = errors.New("payment repository: order already archived")

type Repository interface {
	PutOrder(ctx context.Context, item model.OrderItem) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

// PutOrder archives the order with a conditional put on the intent id, so the
// archive itself is the idempotency check. A delivery that fails after this
// point can be retried; a delivery that already archived returns
// ErrAlreadyProcessed and must not be applied again.
func (r *DynamoRepository) PutOrder(ctx context.Context, item model.OrderItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, model.OrdersTable, "orderId", item)
	if errors.Is(err, database.ErrConditionFailed) {
		return ErrAlreadyProcessed
	}
	return err
}
