package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentCommit is returned when another writer committed a snapshot
// version concurrently.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// ErrNoCommit is returned by Current when no snapshot has been committed
// yet.
var ErrNoCommit = errors.New("no committed snapshot")

// DDBClient is the subset of the DynamoDB API the commit store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore tracks which snapshot blob is the current one. S3 has no
// compare-and-swap, so the "current snapshot" pointer lives in DynamoDB:
// each commit writes a new monotonically increasing version row with a
// conditional put, and readers query the highest version.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix
//   - Sort key: version (number) - monotonically increasing commit version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name statemap-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a commit store for snapshots under baseURI,
// typically "s3://bucket/prefix".
func NewCommitStore(ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Current returns the blob name and version of the latest committed
// snapshot.
func (s *CommitStore) Current(ctx context.Context) (string, uint64, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", 0, fmt.Errorf("query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", 0, ErrNoCommit
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return "", 0, errors.New("invalid version attribute in commit table")
	}
	keyAttr, ok := item["snapshot_key"].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, errors.New("invalid snapshot_key attribute in commit table")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse commit version: %w", err)
	}
	return keyAttr.Value, version, nil
}

// Commit records snapshotKey as the current snapshot. The conditional put
// fails with ErrConcurrentCommit if another writer claimed the next
// version first; callers retry after re-reading Current.
func (s *CommitStore) Commit(ctx context.Context, snapshotKey string) (uint64, error) {
	_, currentVersion, err := s.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoCommit) {
		return 0, err
	}
	newVersion := currentVersion + 1

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":     &types.AttributeValueMemberS{Value: s.baseURI},
			"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(newVersion, 10)},
			"snapshot_key": &types.AttributeValueMemberS{Value: snapshotKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentCommit
		}
		return 0, fmt.Errorf("commit snapshot version: %w", err)
	}
	return newVersion, nil
}
