package db

const paragraphsSchemaV1 = `
CREATE TABLE IF NOT EXISTS paragraphs_type (
    id          TEXT PRIMARY KEY,
    label       TEXT NOT NULL,
    created     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS node_field_data (
    nid         INTEGER PRIMARY KEY,
    type        TEXT NOT NULL,
    title       TEXT NOT NULL,
    changed     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS paragraphs_item (
    id          INTEGER PRIMARY KEY,
    revision_id INTEGER NOT NULL,
    type        TEXT NOT NULL,
    uuid        TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_paragraphs_item_type ON paragraphs_item(type);

CREATE TABLE IF NOT EXISTS paragraphs_item_field_data (
    id                  INTEGER PRIMARY KEY,
    revision_id         INTEGER NOT NULL,
    type                TEXT NOT NULL,
    parent_id           TEXT,
    parent_type         TEXT,
    parent_field_name   TEXT,
    created             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paragraphs_field_data_type   ON paragraphs_item_field_data(type);
CREATE INDEX IF NOT EXISTS idx_paragraphs_field_data_parent ON paragraphs_item_field_data(parent_type, parent_id);

CREATE TABLE IF NOT EXISTS paragraphs_item_revision (
    id          INTEGER NOT NULL,
    revision_id INTEGER PRIMARY KEY,
    created     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_paragraphs_revision_id ON paragraphs_item_revision(id);

CREATE TABLE IF NOT EXISTS paragraphs_item_revision_field_data (
    id                  INTEGER NOT NULL,
    revision_id         INTEGER NOT NULL,
    type                TEXT NOT NULL,
    parent_id           TEXT,
    parent_type         TEXT,
    parent_field_name   TEXT,
    PRIMARY KEY (id, revision_id)
);
`
