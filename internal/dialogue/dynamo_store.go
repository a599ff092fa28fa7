package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// sessionRecord is the DynamoDB shape of a Session, with a TTL attribute so
// stale sessions age out.
type sessionRecord struct {
	SessionID string   `dynamodbav:"sessionId"`
	Session   *Session `dynamodbav:"session"`
	UpdatedAt string   `dynamodbav:"updatedAt"`
	ExpiresAt int64    `dynamodbav:"expiresAt,omitempty"`
}

// DynamoSessionStore persists sessions in a DynamoDB table keyed by sessionId.
type DynamoSessionStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
}

// NewDynamoSessionStore builds a store backed by the provided DynamoDB client.
func NewDynamoSessionStore(client dynamoAPI, tableName string, ttl time.Duration) *DynamoSessionStore {
	if client == nil {
		panic("dialogue: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("dialogue: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DynamoSessionStore{client: client, tableName: tableName, ttl: ttl}
}

func (s *DynamoSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("dialogue: session id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dialogue: failed to fetch session: %w", err)
	}
	if out.Item == nil {
		return nil, ErrSessionNotFound
	}

	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("dialogue: failed to decode session: %w", err)
	}
	if rec.Session == nil {
		return nil, ErrSessionNotFound
	}
	return rec.Session, nil
}

func (s *DynamoSessionStore) Put(ctx context.Context, id string, sess *Session) error {
	if id == "" {
		return errors.New("dialogue: session id required")
	}
	if sess == nil {
		return errors.New("dialogue: session cannot be nil")
	}
	now := time.Now().UTC()
	rec := sessionRecord{
		SessionID: id,
		Session:   sess,
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("dialogue: failed to marshal session: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dialogue: failed to persist session: %w", err)
	}
	return nil
}

func (s *DynamoSessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("dialogue: session id required")
	}
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: id},
		},
	}); err != nil {
		return fmt.Errorf("dialogue: failed to delete session: %w", err)
	}
	return nil
}
