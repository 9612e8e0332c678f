package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/infrastructure/persistence/records"
	pkgerrors "ameliorate/pkg/errors"
)

// TopicRepository implements ports.TopicRepository
type TopicRepository struct {
	table *Table
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(table *Table) *TopicRepository {
	return &TopicRepository{table: table}
}

// Create writes the topic and its title guard in one transaction
func (r *TopicRepository) Create(ctx context.Context, topic *aggregates.Topic) error {
	rec := records.FromTopic(topic)
	item, err := marshal(newTopicItem(rec))
	if err != nil {
		return err
	}
	guard, err := marshal(newTitleGuard(rec.CreatorID, rec.Title, rec.ID))
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.table.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.table.name), Item: item,
				ConditionExpression: expr.Condition(), ExpressionAttributeNames: expr.Names()}},
			{Put: &types.Put{TableName: aws.String(r.table.name), Item: guard,
				ConditionExpression: expr.Condition(), ExpressionAttributeNames: expr.Names()}},
		},
	})
	if conditionFailed(err) {
		return pkgerrors.NewConflictError("a topic with this title already exists")
	}
	if err != nil {
		r.table.logger.Error("Failed to create topic", zap.Error(err), zap.String("topicID", rec.ID))
		return pkgerrors.NewDatabaseError("create topic", err)
	}
	return nil
}

// GetByID loads the topic partition and assembles the aggregate
func (r *TopicRepository) GetByID(ctx context.Context, id valueobjects.TopicID) (*aggregates.Topic, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(topicPK(id.String())))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	items, err := r.table.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get topic", err)
	}
	return assemble(items)
}

// FindByCreatorAndTitle resolves the title guard, then loads the topic
func (r *TopicRepository) FindByCreatorAndTitle(ctx context.Context, creatorID, title string) (*aggregates.Topic, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table.name),
		Key:            r.table.key(titlePK(creatorID, title), guardSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("find topic", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("topic")
	}
	var guard guardItem
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal title guard: %w", err)
	}
	id, err := valueobjects.NewTopicIDFromString(guard.Owner)
	if err != nil {
		return nil, fmt.Errorf("title guard %s: %w", guard.PK, err)
	}
	return r.GetByID(ctx, id)
}

// ListByCreator reads the creator's topics from GSI1, newest first, and
// returns one page of them
func (r *TopicRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*aggregates.Topic, int, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(creatorGSI(creatorID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}
	items, err := r.table.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table.name),
		IndexName:                 aws.String(r.table.index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("list topics", err)
	}

	total := len(items)
	if offset >= total {
		return []*aggregates.Topic{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	topics := make([]*aggregates.Topic, 0, end-offset)
	for _, av := range items[offset:end] {
		var item topicItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal topic: %w", err)
		}
		topic, err := item.TopicRecord.Topic()
		if err != nil {
			return nil, 0, err
		}
		topics = append(topics, topic)
	}
	return topics, total, nil
}

// UpdateTitle moves the title guard and renames the topic in one transaction
func (r *TopicRepository) UpdateTitle(ctx context.Context, topic *aggregates.Topic) error {
	current, err := r.metadata(ctx, topic.ID().String())
	if err != nil {
		return err
	}
	rec := records.FromTopic(topic)

	update := expression.Set(expression.Name("Title"), expression.Value(rec.Title)).
		Set(expression.Name("UpdatedAt"), expression.Value(rec.UpdatedAt))
	updateExpr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                 aws.String(r.table.name),
		Key:                       r.table.key(topicPK(rec.ID), metadataSK),
		UpdateExpression:          updateExpr.Update(),
		ConditionExpression:       updateExpr.Condition(),
		ExpressionAttributeNames:  updateExpr.Names(),
		ExpressionAttributeValues: updateExpr.Values(),
	}}}

	if current.Title != rec.Title {
		guard, err := marshal(newTitleGuard(rec.CreatorID, rec.Title, rec.ID))
		if err != nil {
			return err
		}
		guardExpr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition: %w", err)
		}
		items = append(items,
			types.TransactWriteItem{Put: &types.Put{
				TableName:                aws.String(r.table.name),
				Item:                     guard,
				ConditionExpression:      guardExpr.Condition(),
				ExpressionAttributeNames: guardExpr.Names(),
			}},
			types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.table.name),
				Key:       r.table.key(titlePK(current.CreatorID, current.Title), guardSK),
			}},
		)
	}

	_, err = r.table.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if conditionFailed(err) {
		return pkgerrors.NewConflictError("a topic with this title already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("update topic", err)
	}
	return nil
}

// Delete removes every item in the topic partition and the title guard
func (r *TopicRepository) Delete(ctx context.Context, id valueobjects.TopicID) error {
	current, err := r.metadata(ctx, id.String())
	if err != nil {
		return err
	}

	keyCond := expression.Key("PK").Equal(expression.Value(topicPK(id.String())))
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	keys, err := r.table.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete topic", err)
	}

	requests := make([]types.WriteRequest, 0, len(keys)+1)
	for _, key := range keys {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
		Key: r.table.key(titlePK(current.CreatorID, current.Title), guardSK),
	}})
	if err := r.table.batchWrite(ctx, requests); err != nil {
		return pkgerrors.NewDatabaseError("delete topic", err)
	}

	r.table.logger.Debug("Deleted topic partition", zap.String("topicID", id.String()), zap.Int("items", len(requests)))
	return nil
}

// SaveParts touches the topic, then writes nodes and edges in batches
func (r *TopicRepository) SaveParts(ctx context.Context, topicID valueobjects.TopicID, nodes []*entities.Node, edges []*entities.Edge) error {
	if err := r.touch(ctx, topicID.String()); err != nil {
		return err
	}

	pk := topicPK(topicID.String())
	seq := time.Now().UnixNano()
	requests := make([]types.WriteRequest, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		rec := records.FromNode(n)
		av, err := marshal(nodeItem{
			itemKeys:   itemKeys{PK: pk, SK: nodeSK(rec.ID), EntityType: entityNode},
			Seq:        seq,
			NodeRecord: rec,
		})
		if err != nil {
			return err
		}
		seq++
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for _, e := range edges {
		rec := records.FromEdge(e)
		av, err := marshal(edgeItem{
			itemKeys:   itemKeys{PK: pk, SK: edgeSK(rec.ID), EntityType: entityEdge},
			Seq:        seq,
			EdgeRecord: rec,
		})
		if err != nil {
			return err
		}
		seq++
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	if err := r.table.batchWrite(ctx, requests); err != nil {
		return pkgerrors.NewDatabaseError("save graph parts", err)
	}
	return nil
}

// RemoveParts deletes nodes, edges and every score on them
func (r *TopicRepository) RemoveParts(ctx context.Context, topicID valueobjects.TopicID, removal aggregates.PartRemoval) error {
	if removal.IsEmpty() {
		return nil
	}
	pk := topicPK(topicID.String())
	partIDs := removal.PartIDs()

	scoreKeys, err := r.scoreKeysFor(ctx, pk, partIDs)
	if err != nil {
		return pkgerrors.NewDatabaseError("remove graph parts", err)
	}

	requests := make([]types.WriteRequest, 0, len(partIDs)+len(scoreKeys))
	for _, key := range scoreKeys {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	for _, id := range removal.EdgeIDs {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: r.table.key(pk, edgeSK(id.String()))}})
	}
	for _, id := range removal.NodeIDs {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: r.table.key(pk, nodeSK(id.String()))}})
	}
	if err := r.table.batchWrite(ctx, requests); err != nil {
		return pkgerrors.NewDatabaseError("remove graph parts", err)
	}
	return r.touch(ctx, topicID.String())
}

// SaveScore puts the score item; its key makes the write an upsert
func (r *TopicRepository) SaveScore(ctx context.Context, score entities.UserScore) error {
	rec := records.FromScore(score)
	av, err := marshal(scoreItem{
		itemKeys:    itemKeys{PK: topicPK(rec.TopicID), SK: scoreSK(rec.UserID, rec.GraphPartID), EntityType: entityScore},
		ScoreRecord: rec,
	})
	if err != nil {
		return err
	}
	if _, err := r.table.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table.name),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewDatabaseError("save score", err)
	}
	return nil
}

func (r *TopicRepository) metadata(ctx context.Context, id string) (records.TopicRecord, error) {
	out, err := r.table.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table.name),
		Key:            r.table.key(topicPK(id), metadataSK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return records.TopicRecord{}, pkgerrors.NewDatabaseError("get topic", err)
	}
	if out.Item == nil {
		return records.TopicRecord{}, pkgerrors.NewNotFoundError("topic")
	}
	var item topicItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return records.TopicRecord{}, fmt.Errorf("failed to unmarshal topic: %w", err)
	}
	return item.TopicRecord, nil
}

// touch bumps UpdatedAt, failing with NotFound when the topic is gone
func (r *TopicRepository) touch(ctx context.Context, id string) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("UpdatedAt"), expression.Value(time.Now().UTC()))).
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	_, err = r.table.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table.name),
		Key:                       r.table.key(topicPK(id), metadataSK),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if conditionFailed(err) {
		return pkgerrors.NewNotFoundError("topic")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("touch topic", err)
	}
	return nil
}

func (r *TopicRepository) scoreKeysFor(ctx context.Context, pk string, partIDs []string) ([]map[string]types.AttributeValue, error) {
	operands := make([]expression.OperandBuilder, 0, len(partIDs))
	for _, id := range partIDs {
		operands = append(operands, expression.Value(id))
	}
	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.Key("SK").BeginsWith("SCORE#"))
	filter := expression.Name("GraphPartID").In(operands[0], operands[1:]...)

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithFilter(filter).
		WithProjection(expression.NamesList(expression.Name("PK"), expression.Name("SK"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.table.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table.name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
}

// assemble rebuilds a topic from every item of its partition
func assemble(items []map[string]types.AttributeValue) (*aggregates.Topic, error) {
	var (
		topic  *topicItem
		nodes  []nodeItem
		edges  []edgeItem
		scores []records.ScoreRecord
	)
	for _, av := range items {
		var err error
		switch entityType(av) {
		case entityTopic:
			var item topicItem
			err = attributevalue.UnmarshalMap(av, &item)
			topic = &item
		case entityNode:
			var item nodeItem
			err = attributevalue.UnmarshalMap(av, &item)
			nodes = append(nodes, item)
		case entityEdge:
			var item edgeItem
			err = attributevalue.UnmarshalMap(av, &item)
			edges = append(edges, item)
		case entityScore:
			var item scoreItem
			err = attributevalue.UnmarshalMap(av, &item)
			scores = append(scores, item.ScoreRecord)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s item: %w", strings.ToLower(entityType(av)), err)
		}
	}
	if topic == nil {
		return nil, pkgerrors.NewNotFoundError("topic")
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
	sort.Slice(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })
	nodeRecs := make([]records.NodeRecord, len(nodes))
	for i, n := range nodes {
		nodeRecs[i] = n.NodeRecord
	}
	edgeRecs := make([]records.EdgeRecord, len(edges))
	for i, e := range edges {
		edgeRecs[i] = e.EdgeRecord
	}
	return records.AssembleTopic(topic.TopicRecord, nodeRecs, edgeRecs, scores)
}
