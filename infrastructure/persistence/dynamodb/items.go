package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Single-table key layout:
//
//	entry         PK=ENTRY#<id>           SK=METADATA
//	relationship  PK=ENTRY#<source>       SK=REL#<target>
//	detection lock PK=LOCK#detect#<id>    SK=LOCK
const (
	entryPrefix    = "ENTRY#"
	relPrefix      = "REL#"
	metadataSK     = "METADATA"
	entityEntry    = "ENTRY"
	entityRelation = "REL"
)

// API is the subset of the DynamoDB client the repositories use.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// entryItem represents the DynamoDB item structure for an entry
type entryItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	EntityType  string    `dynamodbav:"EntityType"`
	EntryID     string    `dynamodbav:"EntryID"`
	Title       string    `dynamodbav:"Title"`
	Summary     string    `dynamodbav:"Summary,omitempty"`
	Tags        []string  `dynamodbav:"Tags,omitempty"`
	SourceLabel string    `dynamodbav:"SourceLabel,omitempty"`
	BodyText    string    `dynamodbav:"BodyText,omitempty"`
	Embedding   []float32 `dynamodbav:"Embedding,omitempty"`
	CreatedAt   string    `dynamodbav:"CreatedAt"`
	UpdatedAt   string    `dynamodbav:"UpdatedAt"`
}

// relationshipItem is one directed row
type relationshipItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	SourceID   string  `dynamodbav:"SourceID"`
	TargetID   string  `dynamodbav:"TargetID"`
	Kind       string  `dynamodbav:"Kind"`
	Score      float64 `dynamodbav:"Score"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
	UpdatedAt  string  `dynamodbav:"UpdatedAt"`
}

func entryPK(id string) string { return entryPrefix + id }

func relSK(target string) string { return relPrefix + target }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toEntryItem(e *entities.Entry) entryItem {
	return entryItem{
		PK:          entryPK(e.ID()),
		SK:          metadataSK,
		EntityType:  entityEntry,
		EntryID:     e.ID(),
		Title:       e.Title(),
		Summary:     e.Summary(),
		Tags:        e.Tags(),
		SourceLabel: e.SourceLabel(),
		BodyText:    e.BodyText(),
		Embedding:   e.Embedding(),
		CreatedAt:   formatTime(e.CreatedAt()),
		UpdatedAt:   formatTime(e.UpdatedAt()),
	}
}

func (it entryItem) toEntity() *entities.Entry {
	id := it.EntryID
	if id == "" {
		id = strings.TrimPrefix(it.PK, entryPrefix)
	}
	return entities.ReconstructEntry(
		id, it.Title, it.Summary, it.Tags, it.SourceLabel, it.BodyText, it.Embedding,
		parseTime(it.CreatedAt), parseTime(it.UpdatedAt),
	)
}

func toRelationshipItem(r entities.Relationship) relationshipItem {
	return relationshipItem{
		PK:         entryPK(r.SourceID),
		SK:         relSK(r.TargetID),
		EntityType: entityRelation,
		SourceID:   r.SourceID,
		TargetID:   r.TargetID,
		Kind:       r.Kind.String(),
		Score:      r.Score.Float64(),
		CreatedAt:  formatTime(r.CreatedAt),
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
}

func (it relationshipItem) toEntity() (entities.Relationship, error) {
	kind, err := valueobjects.ParseRelationshipKind(it.Kind)
	if err != nil {
		return entities.Relationship{}, err
	}
	return entities.Relationship{
		SourceID:  it.SourceID,
		TargetID:  it.TargetID,
		Kind:      kind,
		Score:     valueobjects.ClampScore(it.Score),
		CreatedAt: parseTime(it.CreatedAt),
		UpdatedAt: parseTime(it.UpdatedAt),
	}, nil
}

// retryableCodes are service error codes that mean "try again later".
var retryableCodes = map[string]struct{}{
	"ProvisionedThroughputExceededException": {},
	"ThrottlingException":                    {},
	"RequestLimitExceeded":                   {},
	"InternalServerError":                    {},
	"ServiceUnavailable":                     {},
	"TransactionInProgressException":         {},
}

// classifyError maps SDK errors onto AppErrors.
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := retryableCodes[apiErr.ErrorCode()]; ok {
			return pkgerrors.NewUnavailableError("dynamodb").
				WithCode(apiErr.ErrorCode()).
				WithCause(fmt.Errorf("%s: %w", operation, err))
		}
	}
	return pkgerrors.NewDatabaseError(operation, err)
}

// conditionFailed reports whether a transaction was cancelled only because a
// condition check failed.
func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	failed := false
	for _, reason := range canceled.CancellationReasons {
		if reason.Code == nil {
			continue
		}
		switch *reason.Code {
		case "None", "":
		case "ConditionalCheckFailed":
			failed = true
		default:
			return false
		}
	}
	return failed
}
