package ledger

// Schema DDL. Statements are idempotent so Open can run them on every start.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    record_id TEXT PRIMARY KEY,
    api_id TEXT NOT NULL,
    api_name TEXT NOT NULL,
    stage TEXT NOT NULL,
    deployment_id TEXT,
    invoke_url TEXT,
    region TEXT NOT NULL,
    endpoint TEXT,
    resources TEXT NOT NULL,
    created_at TEXT NOT NULL,
    deleted_at TEXT
);`

	createRecordsAPIIndex = `CREATE INDEX IF NOT EXISTS idx_records_api_id ON records(api_id);`
)

var schemaStatements = []string{
	createRecords,
	createRecordsAPIIndex,
}
