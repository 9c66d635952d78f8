package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the ledger.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBDatabase keeps the ledger in a table keyed by the string attribute "id".
// The table is provisioned outside the function.
type DynamoDBDatabase struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoDBDatabase(client DynamoDBAPI, table string) (*DynamoDBDatabase, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodb ledger requires a table name")
	}
	return &DynamoDBDatabase{client: client, table: table}, nil
}

func NewDynamoDBDatabaseFromConfig(ctx context.Context, cfg Config) (*DynamoDBDatabase, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoDBDatabase(client, cfg.Table)
}

func (d *DynamoDBDatabase) CreateDatabase(ctx context.Context) error {
	if _, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)}); err != nil {
		return fmt.Errorf("dynamodb table %s not reachable: %w", d.table, err)
	}
	return nil
}

func (d *DynamoDBDatabase) DoesDatabaseExist(ctx context.Context) bool {
	return d.CreateDatabase(ctx) == nil
}

func (d *DynamoDBDatabase) Close() error {
	return nil
}

func (d *DynamoDBDatabase) RecordInspection(ctx context.Context, inspection *Inspection) (string, error) {
	prepare(inspection)

	item, err := attributevalue.MarshalMap(inspection)
	if err != nil {
		return "", fmt.Errorf("failed to marshal inspection: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put inspection: %w", err)
	}
	return inspection.ID, nil
}

func (d *DynamoDBDatabase) GetInspections(ctx context.Context) ([]*Inspection, error) {
	var (
		inspections []*Inspection
		startKey    map[string]types.AttributeValue
	)
	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspections: %w", err)
		}
		var page []*Inspection
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inspections: %w", err)
		}
		inspections = append(inspections, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.SliceStable(inspections, func(i, j int) bool {
		return inspections[i].CreatedAt.After(inspections[j].CreatedAt)
	})
	return inspections, nil
}

func (d *DynamoDBDatabase) GetInspectionByID(ctx context.Context, id string) (*Inspection, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInspectionNotFound, id)
	}
	var inspection Inspection
	if err := attributevalue.UnmarshalMap(out.Item, &inspection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inspection %s: %w", id, err)
	}
	return &inspection, nil
}
