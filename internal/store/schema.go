package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS issuer (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    name_ref             TEXT NOT NULL,
    department           TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active',
    created_by           INTEGER NOT NULL,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_line (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    year                 INTEGER NOT NULL,
    project              TEXT NOT NULL,
    activities           TEXT NOT NULL,
    project_code         TEXT NOT NULL,
    result               TEXT NOT NULL DEFAULT '',
    item_code            TEXT NOT NULL,
    activity_code        INTEGER NOT NULL UNIQUE,
    baseline_amount      INTEGER NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS request (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    issuer_id            INTEGER NOT NULL REFERENCES issuer(id),
    request_type         TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS sub_request (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id           INTEGER NOT NULL REFERENCES request(id),
    kind                 TEXT NOT NULL,
    object               TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active',
    created_by           INTEGER NOT NULL,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_line (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    budget_line_id       INTEGER NOT NULL REFERENCES budget_line(id),
    sub_request_id       INTEGER NOT NULL REFERENCES sub_request(id),
    amount               INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS travel (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    sub_request_id       INTEGER NOT NULL REFERENCES sub_request(id),
    travel_type          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reconciliation (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id           INTEGER NOT NULL REFERENCES request(id),
    kind                 TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active',
    registered_by        INTEGER NOT NULL,
    registered_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS regularisation_line (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    expense_line_id      INTEGER NOT NULL REFERENCES expense_line(id),
    reconciliation_id    INTEGER NOT NULL REFERENCES reconciliation(id),
    spent_amount         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS balance (
    budget_line_id       INTEGER PRIMARY KEY REFERENCES budget_line(id),
    amount               INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_budget_line_status ON budget_line(status);
CREATE INDEX IF NOT EXISTS idx_budget_line_year_project ON budget_line(year, project);
CREATE INDEX IF NOT EXISTS idx_sub_request_request ON sub_request(request_id);
CREATE INDEX IF NOT EXISTS idx_sub_request_status ON sub_request(status);
CREATE INDEX IF NOT EXISTS idx_expense_line_budget ON expense_line(budget_line_id);
CREATE INDEX IF NOT EXISTS idx_expense_line_sub_request ON expense_line(sub_request_id);
CREATE INDEX IF NOT EXISTS idx_reconciliation_status ON reconciliation(status);
CREATE INDEX IF NOT EXISTS idx_regularisation_expense ON regularisation_line(expense_line_id);
CREATE INDEX IF NOT EXISTS idx_regularisation_reconciliation ON regularisation_line(reconciliation_id);
`
