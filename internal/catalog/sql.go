package catalog

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS takes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    path        TEXT     NOT NULL,
    duration_ms INTEGER  NOT NULL,
    sample_rate INTEGER  NOT NULL,
    channels    INTEGER  NOT NULL,
    size_bytes  INTEGER  NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_takes_created_at ON takes (created_at);`

	insertTakeSQL = `
INSERT INTO takes (path,
                   duration_ms,
                   sample_rate,
                   channels,
                   size_bytes,
                   created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	selectTakesSQL = `
SELECT 
    id, 
    path, 
    duration_ms, 
    sample_rate, 
    channels, 
    size_bytes, 
    created_at 
FROM takes 
ORDER BY created_at DESC, id DESC`

	deleteTakeSQL = `
DELETE FROM takes 
WHERE 
    id = ?`
)
