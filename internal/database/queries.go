/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package database

const (
	// Participant queries
	queryGetParticipants = `
		SELECT id, name, email, created_at, updated_at
		FROM participants
		WHERE active = 1
		ORDER BY created_at`

	queryInsertParticipant = `
		INSERT OR IGNORE INTO participants (id, name, email) VALUES (?, ?, ?)`

	queryGetParticipantById = `
		SELECT id, name, email, created_at, updated_at
		FROM participants
		WHERE id = ? AND active = 1`

	queryGetParticipantByEmail = `
		SELECT id, name, email, created_at, updated_at
		FROM participants
		WHERE LOWER(email) = LOWER(?) AND active = 1`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE participant_id = ? AND asset = ?`

	queryGetAllParticipantBalances = `
		SELECT id, participant_id, asset, balance, COALESCE(last_entry_id, ''), version, updated_at
		FROM account_balances
		WHERE participant_id = ? AND balance != '0'
		ORDER BY asset`

	queryGetEntryAmounts = `
		SELECT amount
		FROM ledger_entries
		WHERE participant_id = ? AND asset = ? AND status = 'confirmed'`

	// Entry queries
	queryCheckDuplicateEntry = `
		SELECT id FROM ledger_entries WHERE idempotency_key = ? LIMIT 1`

	queryGetEntryByKey = `
		SELECT participant_id, asset, entry_type, amount
		FROM ledger_entries
		WHERE idempotency_key = ?
		LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE participant_id = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, participant_id, asset, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertEntry = `
		INSERT INTO ledger_entries (
			id, participant_id, asset, entry_type, amount, balance_before, balance_after,
			idempotency_key, reference, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE participant_id = ? AND asset = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, entry_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetEntryHistory = `
		SELECT id, participant_id, asset, entry_type, amount, balance_before, balance_after,
		       idempotency_key, reference, created_at
		FROM ledger_entries
		WHERE participant_id = ? AND asset = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Trade queries
	queryInsertTrade = `
		INSERT INTO trades (
			id, idempotency_key, buyer_id, seller_id, asset, amount,
			quote_currency, quote_amount, price, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTradeById = `
		SELECT id, idempotency_key, buyer_id, seller_id, asset, amount,
		       quote_currency, quote_amount, price, status, created_at
		FROM trades
		WHERE id = ?`

	queryGetTradeByKey = `
		SELECT id, idempotency_key, buyer_id, seller_id, asset, amount,
		       quote_currency, quote_amount, price, status, created_at
		FROM trades
		WHERE idempotency_key = ?`
)
