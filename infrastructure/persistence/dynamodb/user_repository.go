package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"ameliorate/domain/core/entities"
	"ameliorate/infrastructure/persistence/records"
	pkgerrors "ameliorate/pkg/errors"
)

// UserRepository implements ports.UserRepository
type UserRepository struct {
	table *Table
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(table *Table) *UserRepository {
	return &UserRepository{table: table}
}

// Create writes the profile and the username guard in one transaction
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	rec := records.FromUser(user)
	profile, err := marshal(userItem{
		itemKeys:   itemKeys{PK: userPK(rec.ID), SK: profileSK, EntityType: entityUser},
		UserRecord: rec,
	})
	if err != nil {
		return err
	}
	guard, err := marshal(newUsernameGuard(rec.Username, rec.ID))
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.table.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.table.name), Item: profile,
				ConditionExpression: expr.Condition(), ExpressionAttributeNames: expr.Names()}},
			{Put: &types.Put{TableName: aws.String(r.table.name), Item: guard,
				ConditionExpression: expr.Condition(), ExpressionAttributeNames: expr.Names()}},
		},
	})
	if conditionFailed(err) {
		return pkgerrors.NewConflictError("user or username already exists")
	}
	if err != nil {
		r.table.logger.Error("Failed to create user", zap.Error(err), zap.String("userID", rec.ID))
		return pkgerrors.NewDatabaseError("create user", err)
	}
	return nil
}

// GetByID finds a user by auth subject
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table.name),
		Key:            r.table.key(userPK(id), profileSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return item.UserRecord.User()
}

// GetByUsername resolves the username guard, then loads the profile
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table.name),
		Key:            r.table.key(usernamePK(username), guardSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	var guard guardItem
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal username guard: %w", err)
	}
	return r.GetByID(ctx, guard.Owner)
}
