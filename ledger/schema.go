package ledger

// Schema provisions the ledger tables. Money columns are TEXT holding
// decimal strings; floats never touch the database.
const Schema = `
CREATE TABLE IF NOT EXISTS balance (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	amount TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	symbol TEXT PRIMARY KEY,
	quantity INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
	symbol TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	date DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
`
