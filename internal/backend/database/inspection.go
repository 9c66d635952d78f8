package database

import "time"

// Inspection is the ledger entry written for every processed upload.
type Inspection struct {
	ID           string    `db:"id" json:"id" dynamodbav:"id"`
	Bucket       string    `db:"bucket" json:"bucket" dynamodbav:"bucket"`
	Key          string    `db:"object_key" json:"key" dynamodbav:"object_key"`
	PageCount    int       `db:"page_count" json:"page_count" dynamodbav:"page_count"`
	ModifiedKeys []string  `db:"modified_keys" json:"modified_keys" dynamodbav:"modified_keys"` // stored as JSON in SQLite
	PassedKeys   []string  `db:"passed_keys" json:"passed_keys" dynamodbav:"passed_keys"`       // stored as JSON in SQLite
	CreatedAt    time.Time `db:"created_at" json:"created_at" dynamodbav:"created_at"`          // RFC 3339 string in DynamoDB
}
