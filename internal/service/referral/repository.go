package referral

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"monger-backend/internal/database"
	"monger-backend/internal/model"
)

var ErrNotFound = errors.New("referral repository: not found")

type Repository interface {
	GetReferral(ctx context.Context, queryKey string) (model.ReferralItem, error)
	ListReferrals(ctx context.Context) ([]model.ReferralItem, error)
	PutReferral(ctx context.Context, item model.ReferralItem) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetReferral(ctx context.Context, queryKey string) (model.ReferralItem, error) {
	var item model.ReferralItem
	err := r.db.Client.GetItem(ctx, model.ReferralsTable, map[string]types.AttributeValue{
		"queryKey": &types.AttributeValueMemberS{Value: queryKey},
	}, &item)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return model.ReferralItem{}, ErrNotFound
		}
		return model.ReferralItem{}, err
	}
	return item, nil
}

// ListReferrals returns the whole network for the fuzzy name pass. The table
// is small by nature (people the monger personally knows), so a scan is fine.
func (r *DynamoRepository) ListReferrals(ctx context.Context) ([]model.ReferralItem, error) {
	raw, err := r.db.Client.ScanItems(ctx, model.ReferralsTable, "", nil, nil)
	if err != nil {
		return nil, err
	}
	items := make([]model.ReferralItem, 0, len(raw))
	for _, av := range raw {
		var item model.ReferralItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *DynamoRepository) PutReferral(ctx context.Context, item model.ReferralItem) error {
	return r.db.Client.PutItem(ctx, model.ReferralsTable, item)
}
