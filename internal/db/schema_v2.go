package db

const accountsSchemaV2 = `
CREATE TABLE IF NOT EXISTS accounts (
    name        TEXT PRIMARY KEY,
    api_key     TEXT UNIQUE NOT NULL,
    role        TEXT DEFAULT 'editor' CHECK(role IN ('admin', 'editor')),
    created     TEXT NOT NULL,
    last_active TEXT
);
`
