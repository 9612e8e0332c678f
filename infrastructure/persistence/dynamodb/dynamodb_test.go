package dynamodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ameliorate/infrastructure/persistence/records"
	"ameliorate/infrastructure/persistence/repotest"
)

func TestChunk(t *testing.T) {
	items := make([]int, 60)
	batches := chunk(items, maxBatchWrite)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 25)
	assert.Len(t, batches[1], 25)
	assert.Len(t, batches[2], 10)

	assert.Empty(t, chunk([]int{}, maxBatchWrite))
	assert.Len(t, chunk(make([]int, 25), maxBatchWrite), 1)
}

func TestCreatedKeySortsChronologically(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := createdGSI(base, "b")
	later := createdGSI(base.Add(time.Millisecond), "a")
	muchLater := createdGSI(base.Add(10*time.Second), "a")

	assert.Less(t, earlier, later)
	assert.Less(t, later, muchLater)
}

func TestConditionFailed(t *testing.T) {
	assert.True(t, conditionFailed(&types.ConditionalCheckFailedException{}))
	assert.True(t, conditionFailed(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("None")}, {Code: aws.String("ConditionalCheckFailed")}},
	}))
	assert.False(t, conditionFailed(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	}))
	assert.False(t, conditionFailed(errors.New("boom")))
	assert.False(t, conditionFailed(nil))
}

func TestItemsFlattenRecords(t *testing.T) {
	now := time.Now().UTC()
	rec := records.TopicRecord{ID: "t1", CreatorID: "sub-1", Title: "traffic", CreatedAt: now, UpdatedAt: now}

	av, err := marshal(newTopicItem(rec))
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "TOPIC#t1"}, av["PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: metadataSK}, av["SK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "CREATOR#sub-1"}, av["GSI1PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "traffic"}, av["Title"])
	assert.Equal(t, entityTopic, entityType(av))

	guard, err := marshal(newTitleGuard("sub-1", "traffic", "t1"))
	require.NoError(t, err)
	assert.NotContains(t, guard, "GSI1PK", "guards stay out of the creator index")
}

func TestAssembleOrdersPartsBySeq(t *testing.T) {
	now := time.Now().UTC()
	topicID := uuid.New().String()
	first, second := uuid.New().String(), uuid.New().String()

	var items []map[string]types.AttributeValue
	for _, v := range []any{
		nodeItem{itemKeys: itemKeys{PK: topicPK(topicID), SK: nodeSK(second), EntityType: entityNode}, Seq: 2,
			NodeRecord: records.NodeRecord{ID: second, TopicID: topicID, Type: "solution", CreatedAt: now, UpdatedAt: now}},
		newTopicItem(records.TopicRecord{ID: topicID, CreatorID: "sub-1", Title: "traffic", CreatedAt: now, UpdatedAt: now}),
		nodeItem{itemKeys: itemKeys{PK: topicPK(topicID), SK: nodeSK(first), EntityType: entityNode}, Seq: 1,
			NodeRecord: records.NodeRecord{ID: first, TopicID: topicID, Type: "problem", CreatedAt: now, UpdatedAt: now}},
		scoreItem{itemKeys: itemKeys{PK: topicPK(topicID), SK: scoreSK("sub-2", first), EntityType: entityScore},
			ScoreRecord: records.ScoreRecord{TopicID: topicID, UserID: "sub-2", GraphPartID: first, Value: 7}},
	} {
		av, err := attributevalue.MarshalMap(v)
		require.NoError(t, err)
		items = append(items, av)
	}

	topic, err := assemble(items)
	require.NoError(t, err)
	require.Len(t, topic.Nodes(), 2)
	assert.Equal(t, first, topic.Nodes()[0].ID().String())
	assert.Equal(t, second, topic.Nodes()[1].ID().String())
	require.Len(t, topic.Scores(), 1)
	assert.Equal(t, 7, topic.Scores()[0].Value.Int())

	_, err = assemble(items[:1])
	assert.Error(t, err, "partition without metadata")
}

// Runs against DynamoDB Local, e.g.
// docker run -p 8000:8000 amazon/dynamodb-local
func TestRepositoryContract(t *testing.T) {
	endpoint := os.Getenv("DYNAMODB_ENDPOINT")
	if endpoint == "" {
		t.Skip("DYNAMODB_ENDPOINT not set")
	}
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	require.NoError(t, err)
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	repotest.RunContract(t, func(t *testing.T) repotest.Stores {
		table := NewTable(client, "ameliorate-test-"+uuid.NewString()[:8], "GSI1", zap.NewNop())
		created, err := table.EnsureTable(ctx)
		require.NoError(t, err)
		require.True(t, created)
		t.Cleanup(func() {
			_, _ = client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(table.name)})
		})
		return repotest.Stores{
			Topics: NewTopicRepository(table),
			Users:  NewUserRepository(table),
		}
	})
}
