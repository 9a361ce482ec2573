package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// maxTransactItems is the DynamoDB limit on actions per transaction.
const maxTransactItems = 100

// RelationshipStore keeps both rows of every pair in the entry's partition.
// Pair writes and removals go through TransactWriteItems so the two rows
// change together.
type RelationshipStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewRelationshipStore creates a new RelationshipStore
func NewRelationshipStore(client API, tableName string, logger *zap.Logger) *RelationshipStore {
	return &RelationshipStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Upsert writes both rows of a pair in one transaction. Automatic pairs carry
// a condition that refuses to touch a manual row; a refused transaction
// reports written=false.
func (s *RelationshipStore) Upsert(ctx context.Context, pair entities.RelationshipPair) (bool, error) {
	rows := pair.Rows()
	items := make([]types.TransactWriteItem, 0, len(rows))
	for _, row := range rows {
		update, err := s.rowUpdate(row)
		if err != nil {
			return false, err
		}
		items = append(items, types.TransactWriteItem{Update: update})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if conditionFailed(err) {
			s.logger.Debug("Kept manual relationship",
				zap.String("sourceID", rows[0].SourceID),
				zap.String("targetID", rows[0].TargetID),
			)
			return false, nil
		}
		return false, classifyError("upsert relationship", err)
	}
	return true, nil
}

// rowUpdate builds the update for one directed row. CreatedAt is only set
// when the row is new.
func (s *RelationshipStore) rowUpdate(row entities.Relationship) (*types.Update, error) {
	item := toRelationshipItem(row)
	update := expression.
		Set(expression.Name("EntityType"), expression.Value(item.EntityType)).
		Set(expression.Name("SourceID"), expression.Value(item.SourceID)).
		Set(expression.Name("TargetID"), expression.Value(item.TargetID)).
		Set(expression.Name("Kind"), expression.Value(item.Kind)).
		Set(expression.Name("Score"), expression.Value(item.Score)).
		Set(expression.Name("UpdatedAt"), expression.Value(item.UpdatedAt)).
		Set(expression.Name("CreatedAt"), expression.Name("CreatedAt").IfNotExists(expression.Value(item.CreatedAt)))

	builder := expression.NewBuilder().WithUpdate(update)
	if !row.IsManual() {
		builder = builder.WithCondition(expression.Or(
			expression.AttributeNotExists(expression.Name("PK")),
			expression.Name("Kind").NotEqual(expression.Value(valueobjects.KindManual.String())),
		))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build relationship update: %w", err)
	}

	return &types.Update{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: item.PK},
			"SK": &types.AttributeValueMemberS{Value: item.SK},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// QueryRelated lists rows whose source is entryID
func (s *RelationshipStore) QueryRelated(ctx context.Context, entryID string, limit int) ([]entities.Relationship, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(entryPK(entryID))).
		And(expression.Key("SK").BeginsWith(relPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var rows []entities.Relationship
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError("query relationships", err)
		}
		decoded, err := s.decode(page.Items)
		if err != nil {
			return nil, err
		}
		rows = append(rows, decoded...)
	}

	entities.SortRelated(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Remove deletes both rows between a and b
func (s *RelationshipStore) Remove(ctx context.Context, a, b string) error {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: s.rowDelete(a, b)},
			{Delete: s.rowDelete(b, a)},
		},
	})
	return classifyError("remove relationship", err)
}

// RemoveDetected deletes both rows only while neither is manual. Each delete
// carries the kind condition, so a concurrent manual link cancels the
// transaction and the pair is kept.
func (s *RelationshipStore) RemoveDetected(ctx context.Context, a, b string) (bool, error) {
	cond := expression.AttributeExists(expression.Name("PK")).
		And(expression.Name("Kind").NotEqual(expression.Value(valueobjects.KindManual.String())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, fmt.Errorf("failed to build delete condition: %w", err)
	}

	items := make([]types.TransactWriteItem, 0, 2)
	for _, del := range []*types.Delete{s.rowDelete(a, b), s.rowDelete(b, a)} {
		del.ConditionExpression = expr.Condition()
		del.ExpressionAttributeNames = expr.Names()
		del.ExpressionAttributeValues = expr.Values()
		items = append(items, types.TransactWriteItem{Delete: del})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if conditionFailed(err) {
			s.logger.Debug("Stale relationship not removed",
				zap.String("sourceID", a),
				zap.String("targetID", b),
			)
			return false, nil
		}
		return false, classifyError("remove detected relationship", err)
	}
	return true, nil
}

// QueryAllForVisualization returns one row per pair with score >= minScore
func (s *RelationshipStore) QueryAllForVisualization(ctx context.Context, minScore float64) ([]entities.Relationship, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityRelation)).
		And(expression.Name("Score").GreaterThanEqual(expression.Value(minScore)))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	out := make([]entities.Relationship, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError("scan relationships", err)
		}
		decoded, err := s.decode(page.Items)
		if err != nil {
			return nil, err
		}
		for _, row := range decoded {
			if row.SourceID < row.TargetID {
				out = append(out, row)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

// DeleteByEntry removes every pair touching entryID. Each transaction
// removes whole pairs, so a partial failure never leaves a lone row.
func (s *RelationshipStore) DeleteByEntry(ctx context.Context, entryID string) error {
	rows, err := s.QueryRelated(ctx, entryID, 0)
	if err != nil {
		return err
	}

	for _, chunk := range chunkPairs(rows, maxTransactItems/2) {
		items := make([]types.TransactWriteItem, 0, 2*len(chunk))
		for _, row := range chunk {
			items = append(items,
				types.TransactWriteItem{Delete: s.rowDelete(row.SourceID, row.TargetID)},
				types.TransactWriteItem{Delete: s.rowDelete(row.TargetID, row.SourceID)},
			)
		}
		if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
			return classifyError("delete relationships", err)
		}
	}

	s.logger.Debug("Relationships removed for entry",
		zap.String("entryID", entryID),
		zap.Int("pairs", len(rows)),
	)
	return nil
}

func (s *RelationshipStore) rowDelete(source, target string) *types.Delete {
	return &types.Delete{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: entryPK(source)},
			"SK": &types.AttributeValueMemberS{Value: relSK(target)},
		},
	}
}

func (s *RelationshipStore) decode(items []map[string]types.AttributeValue) ([]entities.Relationship, error) {
	var raw []relationshipItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relationships: %w", err)
	}
	out := make([]entities.Relationship, 0, len(raw))
	for _, it := range raw {
		row, err := it.toEntity()
		if err != nil {
			s.logger.Warn("Skipping relationship with unknown kind",
				zap.String("sourceID", it.SourceID),
				zap.String("targetID", it.TargetID),
				zap.String("kind", it.Kind),
			)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func chunkPairs(rows []entities.Relationship, size int) [][]entities.Relationship {
	var chunks [][]entities.Relationship
	for size < len(rows) {
		rows, chunks = rows[size:], append(chunks, rows[:size])
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}
