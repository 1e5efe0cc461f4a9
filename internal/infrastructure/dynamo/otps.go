package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/storefront-api/internal/domain"
	"go.uber.org/zap"
)

// OTPRepo stores OTP sessions.
// PK: session_id. GSI user_id-index lists every session of a user.
type OTPRepo struct {
	client    API
	tableName string
	log       *zap.Logger
}

func NewOTPRepo(client API, tableName string, log *zap.Logger) *OTPRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &OTPRepo{client: client, tableName: tableName, log: log}
}

// Create inserts a new session; an existing session id is never overwritten.
func (r *OTPRepo) Create(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#sid)"),
		ExpressionAttributeNames: map[string]string{"#sid": fieldSessionID},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp session %s exists: %w", rec.SessionID, domain.ErrConflict)
	}
	return err
}

func (r *OTPRepo) Get(ctx context.Context, sessionID string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSessionID, sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	return &rec, nil
}

// DeleteByUser removes every session of userID. The GSI is eventually consistent,
// so a session created concurrently may survive; verification is scoped to the
// session id, so a survivor only matters until it expires.
func (r *OTPRepo) DeleteByUser(ctx context.Context, userID string) error {
	var (
		startKey map[string]types.AttributeValue
		firstErr error
	)
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(indexUserID),
			KeyConditionExpression: aws.String("#uid = :uid"),
			ExpressionAttributeNames: map[string]string{
				"#uid": fieldUserID,
				"#sid": fieldSessionID,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ProjectionExpression: aws.String("#sid"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			sidAttr, ok := item[fieldSessionID].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, sidAttr.Value); err != nil {
				r.log.Warn("failed to delete superseded otp session",
					zap.String("session_id", sidAttr.Value),
					zap.String("user_id", userID),
					zap.Error(err),
				)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return firstErr
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *OTPRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSessionID, sessionID),
	})
	return err
}

// IncrementAttempts atomically adds one failed attempt and returns the new count.
func (r *OTPRepo) IncrementAttempts(ctx context.Context, sessionID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldSessionID, sessionID),
		UpdateExpression:    aws.String("ADD #att :one"),
		ConditionExpression: aws.String("attribute_exists(#sid)"),
		ExpressionAttributeNames: map[string]string{
			"#att": fieldAttempts,
			"#sid": fieldSessionID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return 0, fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	n, ok := out.Attributes[fieldAttempts].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("update attempts: missing %s in response", fieldAttempts)
	}
	attempts, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified flips verified to true exactly once. A session that is already
// verified yields domain.ErrConflict, a missing one domain.ErrNotFound.
func (r *OTPRepo) MarkVerified(ctx context.Context, sessionID string, at int64) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldVerified:   true,
		fieldVerifiedAt: at,
	})
	if err != nil {
		return err
	}
	ue.Names["#sid"] = fieldSessionID
	ue.Names["#ver"] = fieldVerified
	ue.Values[":unverified"] = &types.AttributeValueMemberBOOL{Value: false}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldSessionID, sessionID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("attribute_exists(#sid) AND #ver = :unverified"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return fmt.Errorf("otp session not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("otp session already verified: %w", domain.ErrConflict)
	}
	return err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
