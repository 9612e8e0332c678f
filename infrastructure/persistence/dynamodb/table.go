// Package dynamodb stores topics and users in a single DynamoDB table.
//
// Item layout:
//
//	TOPIC#<id>        METADATA                 topic (GSI1: CREATOR#<creator> / CREATED#<time>#<id>)
//	TOPIC#<id>        NODE#<id>                node
//	TOPIC#<id>        EDGE#<id>                edge
//	TOPIC#<id>        SCORE#<user>#<part>      user score
//	TITLE#<creator>#<title>  GUARD             unique (creator, title)
//	USER#<id>         PROFILE                  user
//	USERNAME#<name>   GUARD                    unique username
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	entityTopic = "TOPIC"
	entityNode  = "NODE"
	entityEdge  = "EDGE"
	entityScore = "SCORE"
	entityGuard = "GUARD"
	entityUser  = "USER"

	metadataSK = "METADATA"
	guardSK    = "GUARD"
	profileSK  = "PROFILE"

	// BatchWriteItem accepts at most 25 requests
	maxBatchWrite = 25
	maxRetries    = 5

	createdLayout = "2006-01-02T15:04:05.000000000Z"
)

// API is the subset of the DynamoDB client the repositories use
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Table is the shared table both repositories write to
type Table struct {
	client API
	name   string
	index  string
	logger *zap.Logger
}

// NewTable creates a Table. index names the GSI1 index.
func NewTable(client API, name, index string, logger *zap.Logger) *Table {
	return &Table{client: client, name: name, index: index, logger: logger}
}

// Ping reports whether the table is reachable
func (t *Table) Ping(ctx context.Context) error {
	_, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	return err
}

// EnsureTable creates the table and its index when missing and waits until
// it is active. It returns whether the table was created.
func (t *Table) EnsureTable(ctx context.Context) (bool, error) {
	_, err := t.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(t.name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(t.index),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("GSI1PK"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("GSI1SK"), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create table %s: %w", t.name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(t.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)}, 2*time.Minute); err != nil {
		return true, fmt.Errorf("waiting for table %s: %w", t.name, err)
	}
	t.logger.Info("Created DynamoDB table", zap.String("table", t.name), zap.String("index", t.index))
	return true, nil
}

// batchWrite sends write requests in chunks, retrying unprocessed items
func (t *Table) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for _, batch := range chunk(requests, maxBatchWrite) {
		pending := batch
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxRetries {
				return fmt.Errorf("batch write: %d items unprocessed after %d attempts", len(pending), maxRetries)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}
			out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{t.name: pending},
			})
			if err != nil {
				return fmt.Errorf("batch write: %w", err)
			}
			pending = out.UnprocessedItems[t.name]
		}
	}
	return nil
}

// queryAll follows LastEvaluatedKey until the query is exhausted
func (t *Table) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (t *Table) key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// conditionFailed reports whether a write or any item of a transaction was
// rejected by its condition expression.
func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

func topicPK(id string) string             { return "TOPIC#" + id }
func nodeSK(id string) string              { return "NODE#" + id }
func edgeSK(id string) string              { return "EDGE#" + id }
func scoreSK(userID, partID string) string { return "SCORE#" + userID + "#" + partID }
func titlePK(creatorID, title string) string {
	return "TITLE#" + creatorID + "#" + title
}
func creatorGSI(creatorID string) string { return "CREATOR#" + creatorID }
func createdGSI(created time.Time, id string) string {
	return "CREATED#" + created.UTC().Format(createdLayout) + "#" + id
}
func userPK(id string) string       { return "USER#" + id }
func usernamePK(name string) string { return "USERNAME#" + name }
