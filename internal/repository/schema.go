package repository

// Schema holds the MySQL DDL applied by cmd/seed. The uniqueness constraint
// on rounds.round_id is what the round creation protocol relies on for
// conflict detection.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		uuid CHAR(36) NOT NULL,
		player_id VARCHAR(64) NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS player_balances (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		player_id VARCHAR(64) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		amount DECIMAL(30,12) NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uniq_player_currency (player_id, currency)
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		uuid CHAR(36) NOT NULL,
		round_id BIGINT NOT NULL UNIQUE,
		seed VARCHAR(128) NOT NULL,
		commit_hash CHAR(64) NOT NULL,
		crash_point DOUBLE NOT NULL,
		status VARCHAR(16) NOT NULL,
		started_at DATETIME NULL,
		crashed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		round_id BIGINT NOT NULL,
		player_id VARCHAR(64) NOT NULL,
		notional_amount DECIMAL(20,2) NOT NULL,
		asset_amount DECIMAL(30,12) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		cashout_multiplier DOUBLE NULL,
		payout_notional DECIMAL(20,2) NULL,
		payout_asset DECIMAL(30,12) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uniq_round_player (round_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		uuid CHAR(36) NOT NULL,
		player_id VARCHAR(64) NOT NULL,
		round_id BIGINT NOT NULL,
		type VARCHAR(16) NOT NULL,
		notional_amount DECIMAL(20,2) NOT NULL,
		asset_amount DECIMAL(30,12) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		price_at_time DECIMAL(20,8) NOT NULL,
		multiplier DOUBLE NULL,
		created_at DATETIME NOT NULL
	)`,
}
