package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/session"
)

const (
	pkPrefixSession = "SESSION#"
	skState         = "STATE"
	DefaultTTL      = 2 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client stores one item per session in a DynamoDB table. Items expire through
// the table's TTL attribute once the session has been idle for ttl.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a DynamoDB-backed Store. A non-positive ttl selects DefaultTTL.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func sessionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefixSession + id},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// Load reads the snapshot of id. Items whose TTL has passed but that DynamoDB
// has not yet swept are reported as missing.
func (c *Client) Load(ctx context.Context, id string) (session.Snapshot, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            sessionKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return session.Snapshot{}, ErrNotFound
	}
	if ttl, err := intAttr(out.Item, "ttl"); err == nil && ttl <= c.now().Unix() {
		return session.Snapshot{}, ErrNotFound
	}

	snap, err := itemToSnapshot(out.Item)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("repository: Load decode: %w", err)
	}
	return snap, nil
}

// Save writes snap as version snap.Version+1.
func (c *Client) Save(ctx context.Context, snap session.Snapshot) (int64, error) {
	if snap.ID == "" {
		return 0, errors.New("repository: Save: session id is required")
	}
	next := snap.Version + 1
	item, err := snapshotItem(snap, next, c.now().Add(c.ttl).Unix())
	if err != nil {
		return 0, fmt.Errorf("repository: Save encode: %w", err)
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	}
	if snap.Version == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)")
	} else {
		in.ConditionExpression = aws.String("#version = :prev")
		in.ExpressionAttributeNames = map[string]string{"#version": "version"}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: strconv.FormatInt(snap.Version, 10)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("repository: Save: %w", err)
	}
	return next, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       sessionKey(id),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

func snapshotItem(snap session.Snapshot, version, ttl int64) (map[string]types.AttributeValue, error) {
	messages, err := json.Marshal(snap.Messages)
	if err != nil {
		return nil, err
	}
	item := sessionKey(snap.ID)
	item["sessionId"] = &types.AttributeValueMemberS{Value: snap.ID}
	item["language"] = &types.AttributeValueMemberS{Value: string(snap.Language)}
	item["messages"] = &types.AttributeValueMemberS{Value: string(messages)}
	item["draft"] = &types.AttributeValueMemberS{Value: snap.Draft}
	item["loading"] = &types.AttributeValueMemberBOOL{Value: snap.Loading}
	item["pendingId"] = &types.AttributeValueMemberS{Value: snap.PendingID}
	item["open"] = &types.AttributeValueMemberBOOL{Value: snap.Open}
	item["seq"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(snap.Seq, 10)}
	item["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}
	item["createdAt"] = &types.AttributeValueMemberS{Value: snap.CreatedAt.UTC().Format(time.RFC3339Nano)}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: snap.UpdatedAt.UTC().Format(time.RFC3339Nano)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)}
	return item, nil
}

func itemToSnapshot(item map[string]types.AttributeValue) (session.Snapshot, error) {
	id, err := strAttr(item, "sessionId")
	if err != nil {
		return session.Snapshot{}, err
	}
	lang, err := strAttr(item, "language")
	if err != nil {
		return session.Snapshot{}, err
	}
	rawMessages, err := strAttr(item, "messages")
	if err != nil {
		return session.Snapshot{}, err
	}
	var messages []domain.Message
	if err := json.Unmarshal([]byte(rawMessages), &messages); err != nil {
		return session.Snapshot{}, fmt.Errorf("repository: decode messages: %w", err)
	}
	version, err := intAttr(item, "version")
	if err != nil {
		return session.Snapshot{}, err
	}
	seq, err := intAttr(item, "seq")
	if err != nil {
		return session.Snapshot{}, err
	}
	draft, _ := strAttr(item, "draft") // allow empty
	loading, _ := boolAttr(item, "loading")
	pendingID, _ := strAttr(item, "pendingId")
	open, _ := boolAttr(item, "open")

	snap := session.Snapshot{
		ID:        id,
		Language:  domain.Language(lang),
		Messages:  messages,
		Draft:     draft,
		Loading:   loading,
		PendingID: pendingID,
		Open:      open,
		Seq:       seq,
		Version:   version,
	}
	snap.CreatedAt, _ = timeAttr(item, "createdAt")
	snap.UpdatedAt, _ = timeAttr(item, "updatedAt")
	return snap, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func boolAttr(item map[string]types.AttributeValue, key string) (bool, error) {
	v, ok := item[key]
	if !ok {
		return false, fmt.Errorf("repository: missing attribute %q", key)
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a bool", key)
	}
	return b.Value, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
