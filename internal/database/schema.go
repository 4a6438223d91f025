package database

// schema is applied on every Initialize; each statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS race_entries (
	race_id      TEXT NOT NULL,
	horse_number TEXT NOT NULL,
	frame_number TEXT NOT NULL,
	impost       TEXT NOT NULL,
	course_len   TEXT NOT NULL,
	weather      TEXT NOT NULL,
	race_type    TEXT NOT NULL,
	ground_state TEXT NOT NULL,
	date         TEXT NOT NULL,
	horse_id     TEXT NOT NULL,
	jockey_id    TEXT NOT NULL,
	sex_age      TEXT NOT NULL,
	body_weight  TEXT NOT NULL,
	finish_rank  TEXT NOT NULL DEFAULT '',
	excluded     BOOLEAN NOT NULL DEFAULT FALSE,
	race_date    DATE,
	PRIMARY KEY (race_id, horse_number)
);
CREATE INDEX IF NOT EXISTS race_entries_race_date_idx ON race_entries (race_date);

CREATE TABLE IF NOT EXISTS horse_results (
	horse_id    TEXT NOT NULL,
	date        TEXT NOT NULL,
	finish_rank TEXT NOT NULL,
	prize_money DOUBLE PRECISION,
	race_date   DATE
);
CREATE INDEX IF NOT EXISTS horse_results_horse_idx ON horse_results (horse_id, race_date);

CREATE TABLE IF NOT EXISTS pedigrees (
	horse_id  TEXT PRIMARY KEY,
	ancestors TEXT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS payouts (
	race_id  TEXT NOT NULL,
	bet_type TEXT NOT NULL,
	winners  TEXT NOT NULL,
	payouts  TEXT NOT NULL,
	PRIMARY KEY (race_id, bet_type)
);

CREATE TABLE IF NOT EXISTS feature_columns (
	table_name TEXT NOT NULL,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	PRIMARY KEY (table_name, position)
);

CREATE TABLE IF NOT EXISTS feature_rows (
	table_name   TEXT NOT NULL,
	race_id      TEXT NOT NULL,
	horse_number INTEGER NOT NULL,
	date         TIMESTAMPTZ NOT NULL,
	label        INTEGER,
	vals         DOUBLE PRECISION[] NOT NULL,
	PRIMARY KEY (table_name, race_id, horse_number)
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
	id            UUID PRIMARY KEY,
	kind          TEXT NOT NULL,
	model_version TEXT NOT NULL,
	standardized  BOOLEAN NOT NULL,
	sample_count  INTEGER NOT NULL,
	min_bets      INTEGER NOT NULL,
	auc           DOUBLE PRECISION,
	curve         JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS evaluation_runs_kind_idx ON evaluation_runs (kind, created_at DESC);
`
