package dynamodb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"ameliorate/infrastructure/persistence/records"
)

// itemKeys are the table and index keys carried by every item
type itemKeys struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK     string `dynamodbav:"GSI1SK,omitempty"`
	EntityType string `dynamodbav:"EntityType"`
}

type topicItem struct {
	itemKeys
	records.TopicRecord
}

// Seq keeps parts in insertion order; SK only identifies them.
type nodeItem struct {
	itemKeys
	Seq int64 `dynamodbav:"Seq"`
	records.NodeRecord
}

type edgeItem struct {
	itemKeys
	Seq int64 `dynamodbav:"Seq"`
	records.EdgeRecord
}

type scoreItem struct {
	itemKeys
	records.ScoreRecord
}

type userItem struct {
	itemKeys
	records.UserRecord
}

// guardItem reserves a unique value; Owner is the id holding it
type guardItem struct {
	itemKeys
	Owner string `dynamodbav:"Owner"`
}

func newTopicItem(rec records.TopicRecord) topicItem {
	return topicItem{
		itemKeys: itemKeys{
			PK:         topicPK(rec.ID),
			SK:         metadataSK,
			GSI1PK:     creatorGSI(rec.CreatorID),
			GSI1SK:     createdGSI(rec.CreatedAt, rec.ID),
			EntityType: entityTopic,
		},
		TopicRecord: rec,
	}
}

func newTitleGuard(creatorID, title, topicID string) guardItem {
	return guardItem{
		itemKeys: itemKeys{PK: titlePK(creatorID, title), SK: guardSK, EntityType: entityGuard},
		Owner:    topicID,
	}
}

func newUsernameGuard(username, userID string) guardItem {
	return guardItem{
		itemKeys: itemKeys{PK: usernamePK(username), SK: guardSK, EntityType: entityGuard},
		Owner:    userID,
	}
}

func marshal(v any) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return av, nil
}

func entityType(item map[string]types.AttributeValue) string {
	if s, ok := item["EntityType"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
