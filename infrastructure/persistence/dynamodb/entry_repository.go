package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chatarchive/domain/core/entities"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// scanSegments is the number of parallel scan workers used to list entries.
const scanSegments = 4

// EntryRepository implements ports.EntryRepository on a single DynamoDB table
type EntryRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(client API, tableName string, logger *zap.Logger) *EntryRepository {
	return &EntryRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetByID retrieves an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*entities.Entry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: entryPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, classifyError("get entry", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("entry %s", id))
	}

	var item entryItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return item.toEntity(), nil
}

// GetAll lists every entry using a parallel scan, oldest first
func (r *EntryRepository) GetAll(ctx context.Context) ([]*entities.Entry, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityEntry))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	var (
		mu  sync.Mutex
		all []*entities.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	for segment := int32(0); segment < scanSegments; segment++ {
		g.Go(func() error {
			paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
				TableName:                 aws.String(r.tableName),
				FilterExpression:          expr.Filter(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				Segment:                   aws.Int32(segment),
				TotalSegments:             aws.Int32(scanSegments),
			})
			for paginator.HasMorePages() {
				page, err := paginator.NextPage(gctx)
				if err != nil {
					return classifyError("scan entries", err)
				}
				var items []entryItem
				if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
					return fmt.Errorf("failed to unmarshal entries: %w", err)
				}
				mu.Lock()
				for _, it := range items {
					all = append(all, it.toEntity())
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt().Equal(all[j].CreatedAt()) {
			return all[i].CreatedAt().Before(all[j].CreatedAt())
		}
		return all[i].ID() < all[j].ID()
	})
	return all, nil
}

// GetAllExcept lists every entry other than id
func (r *EntryRepository) GetAllExcept(ctx context.Context, id string) ([]*entities.Entry, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.ID() != id {
			out = append(out, e)
		}
	}
	return out, nil
}

// Save persists an entry (create or update)
func (r *EntryRepository) Save(ctx context.Context, entry *entities.Entry) error {
	av, err := attributevalue.MarshalMap(toEntryItem(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return classifyError("put entry", err)
	}

	r.logger.Debug("Entry saved", zap.String("entryID", entry.ID()))
	return nil
}

// Delete removes an entry; deleting an absent id is a no-op
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: entryPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	return classifyError("delete entry", err)
}
