package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storefront-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.PutItemOutput{}, args.Error(0)
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.DeleteItemOutput{}, args.Error(0)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func sessionItem(id string) map[string]types.AttributeValue {
	return strKey(fieldSessionID, id)
}

func TestOTPRepo_Create_ConditionOnSessionID(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)
	rec := &domain.OTPRecord{SessionID: "s1", UserID: "u1", Code: "123456"}

	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.ConditionExpression == "attribute_not_exists(#sid)" &&
			in.ExpressionAttributeNames["#sid"] == fieldSessionID
	})).Return(nil).Once()
	require.NoError(t, repo.Create(context.Background(), rec))

	api.On("PutItem", mock.Anything, mock.Anything).Return(&types.ConditionalCheckFailedException{}).Once()
	err := repo.Create(context.Background(), rec)
	assert.ErrorIs(t, err, domain.ErrConflict)
	api.AssertExpectations(t)
}

func TestOTPRepo_Get(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)

	item, err := attributevalue.MarshalMap(domain.OTPRecord{SessionID: "s1", UserID: "u1", Attempts: 2})
	require.NoError(t, err)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.ConsistentRead != nil && *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil).Once()

	rec, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, 2, rec.Attempts)

	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOTPRepo_DeleteByUser_Paginates(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)

	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil && *in.IndexName == indexUserID
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{sessionItem("s1")},
		LastEvaluatedKey: sessionItem("s1"),
	}, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{sessionItem("s2")},
	}, nil).Once()
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(nil).Twice()

	require.NoError(t, repo.DeleteByUser(context.Background(), "u1"))
	api.AssertExpectations(t)
}

func TestOTPRepo_DeleteByUser_ReportsFirstDeleteError(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)
	boom := errors.New("throttled")

	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{sessionItem("s1"), sessionItem("s2")},
	}, nil).Once()
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(boom).Once()
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(nil).Once()

	err := repo.DeleteByUser(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	api.AssertNumberOfCalls(t, "DeleteItem", 2)
}

func TestOTPRepo_IncrementAttempts(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)

	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.UpdateExpression == "ADD #att :one"
	})).Return(&dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{
			fieldAttempts: &types.AttributeValueMemberN{Value: "3"},
		},
	}, nil).Once()

	n, err := repo.IncrementAttempts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{}).Once()
	_, err = repo.IncrementAttempts(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOTPRepo_MarkVerified(t *testing.T) {
	api := new(mockAPI)
	repo := NewOTPRepo(api, "otp", nil)

	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.ConditionExpression == "attribute_exists(#sid) AND #ver = :unverified" &&
			in.ExpressionAttributeNames["#ver"] == fieldVerified
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()
	require.NoError(t, repo.MarkVerified(context.Background(), "s1", 42))

	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Item: sessionItem("s1")}).Once()
	assert.ErrorIs(t, repo.MarkVerified(context.Background(), "s1", 43), domain.ErrConflict)

	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{}).Once()
	assert.ErrorIs(t, repo.MarkVerified(context.Background(), "gone", 44), domain.ErrNotFound)
}
