package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/session"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	deleteErr    error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastDelInput *dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDelInput = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table", time.Hour)
	require.NoError(t, err)
	c.now = func() time.Time { return testNow }
	return c
}

func sampleSnapshot() session.Snapshot {
	return session.Snapshot{
		ID:       "abc",
		Language: domain.LanguageFrench,
		Messages: []domain.Message{
			{ID: "1", Role: domain.RoleModel, Text: "Bienvenue"},
			{ID: "2", Role: domain.RoleUser, Text: "Prix à Lyon ?"},
		},
		Draft:     "brouillon",
		Loading:   true,
		PendingID: "2",
		Open:      true,
		Seq:       2,
		CreatedAt: testNow.Add(-time.Minute),
		UpdatedAt: testNow,
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t", 0)
	require.ErrorContains(t, err, "must not be nil")
	_, err = New(&fakeDynamo{}, " ", 0)
	require.ErrorContains(t, err, "table name")

	c, err := New(&fakeDynamo{}, "t", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, c.ttl)
}

func TestSave_NewSessionRequiresAbsentItem(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	version, err := c.Save(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	in := db.lastPutInput
	require.Equal(t, "test-table", *in.TableName)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *in.ConditionExpression)
	require.Equal(t, "SESSION#abc", in.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "STATE", in.Item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "1", in.Item["version"].(*types.AttributeValueMemberN).Value)

	ttl, err := intAttr(in.Item, "ttl")
	require.NoError(t, err)
	require.Equal(t, testNow.Add(time.Hour).Unix(), ttl)
}

func TestSave_ExistingSessionIsVersionConditional(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	snap := sampleSnapshot()
	snap.Version = 4

	version, err := c.Save(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, int64(5), version)

	in := db.lastPutInput
	require.Equal(t, "#version = :prev", *in.ConditionExpression)
	require.Equal(t, "version", in.ExpressionAttributeNames["#version"])
	require.Equal(t, "4", in.ExpressionAttributeValues[":prev"].(*types.AttributeValueMemberN).Value)
}

func TestSave_ConditionFailureIsConflict(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: strPtr("nope")}}
	c := mustNewClient(t, db)

	_, err := c.Save(context.Background(), sampleSnapshot())
	require.ErrorIs(t, err, ErrConflict)
}

func TestSave_OtherErrorIsWrapped(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("throttled")}
	c := mustNewClient(t, db)

	_, err := c.Save(context.Background(), sampleSnapshot())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "throttled")
}

func TestSave_RequiresID(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	_, err := c.Save(context.Background(), session.Snapshot{})
	require.ErrorContains(t, err, "id is required")
}

func TestLoad_RoundTripsSavedItem(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	snap := sampleSnapshot()
	_, err := c.Save(context.Background(), snap)
	require.NoError(t, err)

	db.getOut = &dynamodb.GetItemOutput{Item: db.lastPutInput.Item}
	got, err := c.Load(context.Background(), "abc")
	require.NoError(t, err)

	require.True(t, *db.lastGetInput.ConsistentRead)
	require.Equal(t, "SESSION#abc", db.lastGetInput.Key["PK"].(*types.AttributeValueMemberS).Value)

	snap.Version = 1
	require.Equal(t, snap.Messages, got.Messages)
	require.Equal(t, snap.Language, got.Language)
	require.Equal(t, snap.Draft, got.Draft)
	require.True(t, got.Loading)
	require.Equal(t, "2", got.PendingID)
	require.True(t, got.Open)
	require.Equal(t, int64(2), got.Seq)
	require.Equal(t, int64(1), got.Version)
	require.True(t, snap.CreatedAt.Equal(got.CreatedAt))
}

func TestLoad_Missing(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, err := c.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_ExpiredItemIsMissing(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	_, err := c.Save(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	db.getOut = &dynamodb.GetItemOutput{Item: db.lastPutInput.Item}

	c.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = c.Load(context.Background(), "abc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_DecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		item    map[string]types.AttributeValue
		wantErr string
	}{
		{
			name:    "missing language",
			item:    map[string]types.AttributeValue{"sessionId": &types.AttributeValueMemberS{Value: "abc"}},
			wantErr: `missing attribute "language"`,
		},
		{
			name: "bad messages",
			item: map[string]types.AttributeValue{
				"sessionId": &types.AttributeValueMemberS{Value: "abc"},
				"language":  &types.AttributeValueMemberS{Value: "en"},
				"messages":  &types.AttributeValueMemberS{Value: "{"},
			},
			wantErr: "decode messages",
		},
		{
			name: "version wrong type",
			item: map[string]types.AttributeValue{
				"sessionId": &types.AttributeValueMemberS{Value: "abc"},
				"language":  &types.AttributeValueMemberS{Value: "en"},
				"messages":  &types.AttributeValueMemberS{Value: "[]"},
				"version":   &types.AttributeValueMemberS{Value: "1"},
			},
			wantErr: "not a number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNewClient(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: tt.item}})
			_, err := c.Load(context.Background(), "abc")
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_GetItemError(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{getErr: errors.New("boom")})
	_, err := c.Load(context.Background(), "abc")
	require.ErrorContains(t, err, "boom")
}

func TestDelete(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	require.NoError(t, c.Delete(context.Background(), "abc"))
	require.Equal(t, "SESSION#abc", db.lastDelInput.Key["PK"].(*types.AttributeValueMemberS).Value)

	db.deleteErr = errors.New("boom")
	require.ErrorContains(t, c.Delete(context.Background(), "abc"), "boom")
}

func strPtr(s string) *string { return &s }
