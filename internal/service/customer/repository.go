package customer

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"monger-backend/internal/database"
	"monger-backend/internal/model"
)

var ErrNotFound = errors.New("customer repository: not found")

type Repository interface {
	CreateCustomer(ctx context.Context, item model.CustomerItem) error
	GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error)
	TouchLastSeen(ctx context.Context, customerID, seenAt string) error
	SetBlockedUntil(ctx context.Context, customerID, until string) error
	RecordPurchase(ctx context.Context, customerID, purchasedAt string) (model.CustomerItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func customerKey(customerID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"customerId": &types.AttributeValueMemberS{Value: customerID},
	}
}

func (r *DynamoRepository) CreateCustomer(ctx context.Context, item model.CustomerItem) error {
	return r.db.Client.PutItem(ctx, model.CustomersTable, item)
}

func (r *DynamoRepository) GetCustomer(ctx context.Context, customerID string) (model.CustomerItem, error) {
	var item model.CustomerItem
	err := r.db.Client.GetItem(ctx, model.CustomersTable, customerKey(customerID), &item)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.CustomerItem{}, ErrNotFound
		}
		return model.CustomerItem{}, err
	}
	return item, nil
}

func (r *DynamoRepository) TouchLastSeen(ctx context.Context, customerID, seenAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.CustomersTable,
		customerKey(customerID),
		"SET lastSeenAt = :seenAt",
		map[string]types.AttributeValue{
			":seenAt": &types.AttributeValueMemberS{Value: seenAt},
		},
		nil,
		nil,
	)
}

func (r *DynamoRepository) SetBlockedUntil(ctx context.Context, customerID, until string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.CustomersTable,
		customerKey(customerID),
		"SET blockedUntil = :until",
		map[string]types.AttributeValue{
			":until": &types.AttributeValueMemberS{Value: until},
		},
		nil,
		nil,
	)
}

// RecordPurchase increments the lifetime shirt count atomically and clears any
// time-waster block in the same write.
func (r *DynamoRepository) RecordPurchase(ctx context.Context, customerID, purchasedAt string) (model.CustomerItem, error) {
	var item model.CustomerItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.CustomersTable,
		customerKey(customerID),
		"ADD shirtsBought :one SET lastPurchaseAt = :at REMOVE blockedUntil",
		map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":at":  &types.AttributeValueMemberS{Value: purchasedAt},
		},
		nil,
		&item,
	)
	if err != nil {
		return model.CustomerItem{}, err
	}
	return item, nil
}
