package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-signup-verify/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// Username and email uniqueness is enforced by guard items in a second table
// (PK: unique_key = "username#<name>" | "email#<addr>") written in the same
// transaction as the user item.
type UserRepo struct {
	client       API
	tableName    string
	uniquesTable string
	now          func() time.Time
}

func NewUserRepo(client API, tableName, uniquesTable string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, uniquesTable: uniquesTable, now: time.Now}
}

func usernameKey(username string) string { return "username#" + username }
func emailKey(email string) string       { return "email#" + email }

// Create inserts u only if no user holds its id, username or email.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			r.guardPut(usernameKey(u.Username), u.UserID),
			r.guardPut(emailKey(u.Email), u.UserID),
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return fmt.Errorf("username or email already registered: %w", domain.ErrDuplicateUser)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) guardPut(key, userID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.uniquesTable),
		Item: map[string]types.AttributeValue{
			attrUniqueKey: &types.AttributeValueMemberS{Value: key},
			attrUserID:    &types.AttributeValueMemberS{Value: userID},
		},
		ConditionExpression: aws.String("attribute_not_exists(unique_key)"),
	}}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, indexEmail, attrEmail, email)
}

// FindByEmailOrUsername returns the first user matching either identity.
func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	u, err := r.queryGSI(ctx, indexEmail, attrEmail, email)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return u, err
	}
	return r.queryGSI(ctx, indexUsername, attrUsername, username)
}

func (r *UserRepo) SetVerificationCode(ctx context.Context, userID, code string, expiry time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		attrVerificationCode: code,
		attrVerificationExp:  expiry.UTC(),
		attrUpdatedAt:        r.now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return fmt.Errorf("set verification code: %w", err)
	}
	return nil
}

// MarkVerified flips is_verified to true and removes the stored code, only if
// the user exists, is still pending and still holds code. A resend that
// replaced the code in between surfaces as domain.ErrCodeMismatch.
func (r *UserRepo) MarkVerified(ctx context.Context, userID, code string) error {
	updatedAt, err := attributevalue.Marshal(r.now().UTC())
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(attrUserID, userID),
		UpdateExpression:    aws.String("SET #v = :t, #u = :now REMOVE #c, #e"),
		ConditionExpression: aws.String("attribute_exists(#id) AND #v = :f AND #c = :code"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrUserID,
			"#v":  attrIsVerified,
			"#u":  attrUpdatedAt,
			"#c":  attrVerificationCode,
			"#e":  attrVerificationExp,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":    &types.AttributeValueMemberBOOL{Value: true},
			":f":    &types.AttributeValueMemberBOOL{Value: false},
			":now":  updatedAt,
			":code": &types.AttributeValueMemberS{Value: code},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			var current *domain.User
			if len(ccf.Item) > 0 {
				current = &domain.User{}
				if err := attributevalue.UnmarshalMap(ccf.Item, current); err != nil {
					return fmt.Errorf("unmarshal user: %w", err)
				}
			}
			return domain.VerifyConflict(userID, current)
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// Delete removes the user together with its uniqueness guards.
func (r *UserRepo) Delete(ctx context.Context, u *domain.User) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{TableName: aws.String(r.tableName), Key: strKey(attrUserID, u.UserID)}},
			{Delete: &types.Delete{TableName: aws.String(r.uniquesTable), Key: strKey(attrUniqueKey, usernameKey(u.Username))}},
			{Delete: &types.Delete{TableName: aws.String(r.uniquesTable), Key: strKey(attrUniqueKey, emailKey(u.Email))}},
		},
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Ping checks that the users table is reachable.
func (r *UserRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user with %s %q: %w", attr, value, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}
