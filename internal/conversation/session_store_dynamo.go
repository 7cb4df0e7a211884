package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// sessionRecord is the DynamoDB item for one session. ExpiresAt feeds the
// table's TTL attribute.
type sessionRecord struct {
	SessionID string       `dynamodbav:"sessionId"`
	State     SessionState `dynamodbav:"state"`
	UpdatedAt string       `dynamodbav:"updatedAt"`
	ExpiresAt int64        `dynamodbav:"expiresAt"`
}

// DynamoSessionStore persists sessions to a DynamoDB table keyed by
// sessionId. It is the serverless counterpart of RedisSessionStore.
type DynamoSessionStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

func NewDynamoSessionStore(client dynamoAPI, tableName string, ttl time.Duration, logger *logging.Logger) *DynamoSessionStore {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoSessionStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *DynamoSessionStore) Load(ctx context.Context, sessionID string) (SessionState, error) {
	if sessionID == "" {
		return SessionState{}, ErrSessionIDRequired
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            sessionItemKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return SessionState{}, fmt.Errorf("conversation: failed to fetch session: %w", err)
	}
	if out.Item == nil {
		return SessionState{}, nil
	}

	var record sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return SessionState{}, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	// DynamoDB TTL deletion is lazy, so expired items can still be read.
	if record.ExpiresAt > 0 && record.ExpiresAt <= s.now().Unix() {
		s.logger.Debug("ignoring expired session", "session_id", sessionID)
		return SessionState{}, nil
	}
	return record.State, nil
}

func (s *DynamoSessionStore) Save(ctx context.Context, sessionID string, state SessionState) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(sessionRecord{
		SessionID: sessionID,
		State:     state,
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

func (s *DynamoSessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       sessionItemKey(sessionID),
	})
	if err != nil {
		return fmt.Errorf("conversation: failed to delete session: %w", err)
	}
	return nil
}

func sessionItemKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	}
}
