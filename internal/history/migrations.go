package history

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    issue INTEGER,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    completed_count INTEGER NOT NULL DEFAULT 0,
    occurred_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_issue ON transitions(issue);
CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);
`
